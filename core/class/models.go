package class

import (
	"time"

	"github.com/trezcool/darasa/core"
)

// Class is a roster: a named group of enrolled students owned by one teacher.
// ActiveCode is the session code currently redeemable for this class, nil
// when no attendance window is open. It always mirrors the code of the
// class's single active session.
type Class struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Subject    string    `json:"subject"`
	TeacherID  int       `json:"teacher_id"`
	StudentIDs []int     `json:"student_ids"`
	ActiveCode *string   `json:"active_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (c *Class) IsOwnedBy(teacherID int) bool {
	return c.TeacherID == teacherID
}

func (c *Class) HasStudent(studentID int) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	TeacherID int    `json:"teacher_id" validate:"required"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	return core.Validate.Struct(nc)
}

// Enrollment actions
const (
	EnrollActionAdd    = "add"
	EnrollActionRemove = "remove"
)

// Enrollment adds a student to, or removes one from, a class roster.
type Enrollment struct {
	StudentID int    `json:"student_id" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=add remove"`
}

func (e *Enrollment) Validate() error {
	e.Action = core.CleanString(e.Action, true /* lower */)
	return core.Validate.Struct(e)
}
