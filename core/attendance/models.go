package attendance

import (
	"strconv"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/class"
)

// Session is a time-bounded attendance window for one class.
// It is created by Open, transitions active -> inactive exactly once (End or
// supersession by a newer Open) and is never deleted; history feeds reports.
type Session struct {
	ID       int       `json:"id"`
	ClassID  int       `json:"class_id"`
	Date     time.Time `json:"date"` // UTC
	Month    int       `json:"month"`
	Year     int       `json:"year"`
	Code     string    `json:"code"`
	IsActive bool      `json:"is_active"`
	// PresentStudents grows in arrival order while the session is active and
	// is frozen once it goes inactive.
	PresentStudents []int     `json:"present_students"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (s *Session) PresentCount() int {
	return len(s.PresentStudents)
}

func (s *Session) HasStudent(studentID int) bool {
	for _, id := range s.PresentStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// MarkAttendance is a student's code submission.
type MarkAttendance struct {
	Code string `json:"code" validate:"required"`
}

func (ma *MarkAttendance) Validate() error {
	ma.Code = NormalizeCode(ma.Code)
	return core.Validate.Struct(ma)
}

// MarkResult is returned to the student on a successful check-in.
type MarkResult struct {
	Class   class.Class
	Session Session
}

// Event is broadcast on every successful check-in, once on the owning
// teacher's topic and once on the class topic.
type Event struct {
	ClassID      int       `json:"classId"`
	SessionID    int       `json:"sessionId"`
	StudentID    int       `json:"studentId"`
	StudentName  string    `json:"studentName"`
	RollNumber   string    `json:"rollNumber"`
	Timestamp    time.Time `json:"timestamp"`
	PresentCount int       `json:"presentCount"`
}

func TopicTeacher(teacherID int) string {
	return "teacher:" + strconv.Itoa(teacherID)
}

func TopicClass(classID int) string {
	return "class:" + strconv.Itoa(classID)
}

// Report status labels
const (
	StatusGood = "Good"
	StatusLow  = "Low"
)

type (
	// ClassReport aggregates attendance for every enrolled student of a class,
	// optionally restricted to one month/year window.
	ClassReport struct {
		ClassID       int                 `json:"class_id"`
		ClassName     string              `json:"class_name"`
		Subject       string              `json:"subject"`
		Month         int                 `json:"month,omitempty"`
		Year          int                 `json:"year,omitempty"`
		TotalSessions int                 `json:"total_sessions"`
		Students      []StudentAttendance `json:"students"`
	}

	StudentAttendance struct {
		StudentID        int    `json:"student_id"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		RollNumber       string `json:"roll_number"`
		AttendedSessions int    `json:"attended_sessions"`
		TotalSessions    int    `json:"total_sessions"`
		Percentage       int    `json:"percentage"`
	}

	// StudentReport holds one ClassStanding per class the student is enrolled in.
	StudentReport struct {
		StudentID int             `json:"student_id"`
		Classes   []ClassStanding `json:"classes"`
	}

	ClassStanding struct {
		ClassID          int    `json:"class_id"`
		ClassName        string `json:"class_name"`
		Subject          string `json:"subject"`
		TotalSessions    int    `json:"total_sessions"`
		AttendedSessions int    `json:"attended_sessions"`
		Percentage       int    `json:"percentage"`
		Status           string `json:"status"`
	}
)
