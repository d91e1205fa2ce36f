package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/repository"
	"github.com/nattapong2005/codementorai/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Classroom{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.AssignmentAnalysis{},
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

type classFixture struct {
	teacher    models.User
	other      models.User
	students   []models.User
	outsider   models.User
	classroom  models.Classroom
	assignment models.Assignment
}

func (f classFixture) teacherActor() Actor {
	return Actor{ID: f.teacher.ID, Role: models.RoleTeacher}
}

func (f classFixture) studentActor(idx int) Actor {
	return Actor{ID: f.students[idx].ID, Role: models.RoleStudent}
}

func (f classFixture) outsiderActor() Actor {
	return Actor{ID: f.outsider.ID, Role: models.RoleStudent}
}

func seedClass(t *testing.T, db *gorm.DB, mode string) classFixture {
	t.Helper()
	fx := classFixture{
		teacher: models.User{Name: "Kru Anong", Email: "anong@example.com", Role: models.RoleTeacher},
		other:   models.User{Name: "Kru Somsak", Email: "somsak@example.com", Role: models.RoleTeacher},
		students: []models.User{
			{Name: "Somchai", Email: "somchai@example.com", Role: models.RoleStudent},
			{Name: "", Email: "anonymous@example.com", Role: models.RoleStudent},
		},
		outsider: models.User{Name: "Malee", Email: "malee@example.com", Role: models.RoleStudent},
	}
	require.NoError(t, db.Create(&fx.teacher).Error)
	require.NoError(t, db.Create(&fx.other).Error)
	require.NoError(t, db.Create(&fx.students).Error)
	require.NoError(t, db.Create(&fx.outsider).Error)

	fx.classroom = models.Classroom{Name: "Python 101", JoinCode: "PY101XYZ", TeacherID: fx.teacher.ID}
	require.NoError(t, db.Omit("Teacher").Create(&fx.classroom).Error)
	for _, student := range fx.students {
		enrollment := models.Enrollment{ClassroomID: fx.classroom.ID, StudentID: student.ID}
		require.NoError(t, db.Omit("Classroom", "Student").Create(&enrollment).Error)
	}

	fx.assignment = models.Assignment{
		ClassroomID:  fx.classroom.ID,
		Title:        "FizzBuzz",
		Description:  "Print numbers 1..15 replacing multiples of 3 and 5",
		MaxScore:     10,
		FeedbackMode: mode,
		DueDate:      time.Now().Add(48 * time.Hour),
	}
	require.NoError(t, db.Omit("Classroom").Create(&fx.assignment).Error)
	return fx
}

// scriptedGenerator returns queued responses in order, repeating the last one.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []ai.GenerateRequest
}

func (g *scriptedGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.responses) == 0 {
		return nil, ai.ErrEmptyContent
	}
	response := g.responses[0]
	if len(g.responses) > 1 {
		g.responses = g.responses[1:]
	}
	return json.RawMessage(response), nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type recordingBroker struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (b *recordingBroker) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

func newTestValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type failingUpdateRepo struct {
	repository.SubmissionRepository
	err error
}

func (r failingUpdateRepo) Update(ctx context.Context, submission *models.Submission) error {
	return r.err
}
