package class

import (
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("class not found")
	ErrNotTeacher      = errors.New("selected user is not a teacher")
	ErrNotStudent      = errors.New("selected user is not a student")
	ErrAlreadyEnrolled = errors.New("student already enrolled in this class")
)

type (
	Repository interface {
		CreateClass(cls Class) (Class, error)
		GetClassByID(id int) (Class, error)
		// GetClassByActiveCode matches the exact (already normalized) code
		// against classes with a published active code.
		GetClassByActiveCode(code string) (Class, error)
		QueryAllClasses() ([]Class, error)
		QueryClassesByTeacher(teacherID int) ([]Class, error)
		QueryClassesByStudent(studentID int) ([]Class, error)
		// AddStudent appends studentID to the roster; ErrAlreadyEnrolled on duplicates.
		AddStudent(classID, studentID int) (Class, error)
		RemoveStudent(classID, studentID int) (Class, error)
		// SetActiveCode publishes (or, with nil, clears) the class's
		// redeemable code. Publishing a code whose session is no longer
		// active is a silent no-op, keeping the published code in agreement
		// with the one live session.
		SetActiveCode(classID int, code *string) error
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
	}
)

func NewService(repo Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, usrRepo: usrRepo}
}

func (svc *Service) Create(nc NewClass) (Class, error) {
	teacher, err := svc.usrRepo.GetUserByID(nc.TeacherID)
	if err != nil {
		return Class{}, err
	}
	if !teacher.IsTeacher() {
		return Class{}, core.NewValidationError(ErrNotTeacher, core.FieldError{Field: "teacher_id", Error: ErrNotTeacher.Error()})
	}

	now := time.Now().UTC()
	cls := Class{
		Name:      nc.Name,
		Subject:   nc.Subject,
		TeacherID: nc.TeacherID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateClass(cls)
}

func (svc *Service) GetByID(id int) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *Service) GetByActiveCode(code string) (Class, error) {
	return svc.repo.GetClassByActiveCode(code)
}

// QueryForUser applies role-based filtering: admins see every class,
// teachers their own, students the ones they are enrolled in.
func (svc *Service) QueryForUser(usr user.User) ([]Class, error) {
	switch {
	case usr.IsAdmin():
		return svc.repo.QueryAllClasses()
	case usr.IsTeacher():
		return svc.repo.QueryClassesByTeacher(usr.ID)
	default:
		return svc.repo.QueryClassesByStudent(usr.ID)
	}
}

// ManageStudent adds or removes a roster member depending on e.Action.
func (svc *Service) ManageStudent(classID int, e Enrollment) (Class, error) {
	student, err := svc.usrRepo.GetUserByID(e.StudentID)
	if err != nil {
		return Class{}, err
	}
	if !student.IsStudent() {
		return Class{}, core.NewValidationError(ErrNotStudent, core.FieldError{Field: "student_id", Error: ErrNotStudent.Error()})
	}

	if e.Action == EnrollActionAdd {
		return svc.repo.AddStudent(classID, e.StudentID)
	}
	return svc.repo.RemoveStudent(classID, e.StudentID)
}
