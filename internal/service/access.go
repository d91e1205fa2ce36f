package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/repository"
)

// ErrForbidden indicates the caller may not act on the requested resource.
var ErrForbidden = errors.New("forbidden")

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   uint
	Role string
}

// IsTeacher reports whether the actor holds the teacher role.
func (a Actor) IsTeacher() bool {
	return strings.EqualFold(a.Role, models.RoleTeacher)
}

type accessPolicy struct {
	classrooms repository.ClassroomRepository
}

func (p accessPolicy) requireOwner(actor Actor, classroom models.Classroom) error {
	if !actor.IsTeacher() || classroom.TeacherID != actor.ID {
		return ErrForbidden
	}
	return nil
}

// requireMember allows the owning teacher and enrolled students.
func (p accessPolicy) requireMember(ctx context.Context, actor Actor, classroom models.Classroom) error {
	if actor.IsTeacher() {
		return p.requireOwner(actor, classroom)
	}

	enrolled, err := p.classrooms.IsEnrolled(ctx, classroom.ID, actor.ID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrForbidden
	}
	return nil
}
