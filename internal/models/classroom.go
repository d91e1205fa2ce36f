package models

import "time"

// Classroom groups students and assignments under one teacher.
type Classroom struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	JoinCode    string       `gorm:"size:16;uniqueIndex;not null" json:"join_code"`
	TeacherID   uint         `gorm:"not null;index" json:"teacher_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Teacher     User         `gorm:"foreignKey:TeacherID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Enrollments []Enrollment `json:"-"`
	Assignments []Assignment `json:"-"`
}

// Enrollment links a student to a classroom.
type Enrollment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClassroomID uint      `gorm:"not null;uniqueIndex:idx_enrollment_member" json:"classroom_id"`
	StudentID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_member" json:"student_id"`
	CreatedAt   time.Time `json:"created_at"`
	Classroom   Classroom `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student     User      `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
