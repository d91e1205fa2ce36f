package models

import "time"

// User roles recognised by the API.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User is a teacher or student account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
