package dummydb

import (
	"time"

	"github.com/trezcool/darasa/core/class"
)

type classRepository struct {
	db       *classTable
	sessions *sessionTable
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class, sessions: db.session}
}

// clone snapshots a row so callers never alias the stored roster slice.
func (repo *classRepository) clone(cls *class.Class) class.Class {
	out := *cls
	out.StudentIDs = append([]int(nil), cls.StudentIDs...)
	if cls.ActiveCode != nil {
		code := *cls.ActiveCode
		out.ActiveCode = &code
	}
	return out
}

func (repo *classRepository) CreateClass(cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	cls.ID = repo.db.seq
	repo.db.table[cls.ID] = &cls
	return repo.clone(&cls), nil
}

func (repo *classRepository) GetClassByID(id int) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return repo.clone(cls), nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) GetClassByActiveCode(code string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cls := range repo.db.table {
		if cls.ActiveCode != nil && *cls.ActiveCode == code {
			return repo.clone(cls), nil
		}
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryAllClasses() ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]class.Class, 0, len(repo.db.table))
	for _, cls := range repo.db.table {
		classes = append(classes, repo.clone(cls))
	}
	return classes, nil
}

func (repo *classRepository) QueryClassesByTeacher(teacherID int) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var classes []class.Class
	for _, cls := range repo.db.table {
		if cls.TeacherID == teacherID {
			classes = append(classes, repo.clone(cls))
		}
	}
	return classes, nil
}

func (repo *classRepository) QueryClassesByStudent(studentID int) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var classes []class.Class
	for _, cls := range repo.db.table {
		if cls.HasStudent(studentID) {
			classes = append(classes, repo.clone(cls))
		}
	}
	return classes, nil
}

func (repo *classRepository) AddStudent(classID, studentID int) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	if cls.HasStudent(studentID) {
		return class.Class{}, class.ErrAlreadyEnrolled
	}
	cls.StudentIDs = append(cls.StudentIDs, studentID)
	cls.UpdatedAt = time.Now().UTC()
	return repo.clone(cls), nil
}

func (repo *classRepository) RemoveStudent(classID, studentID int) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classID]
	if !ok {
		return class.Class{}, class.ErrNotFound
	}
	students := cls.StudentIDs[:0]
	for _, id := range cls.StudentIDs {
		if id != studentID {
			students = append(students, id)
		}
	}
	cls.StudentIDs = students
	cls.UpdatedAt = time.Now().UTC()
	return repo.clone(cls), nil
}

// SetActiveCode publishes (or clears) the class's redeemable code.
// Publishing is a no-op when the code's session is no longer active, so an
// open that already got superseded cannot overwrite the winner's code.
// Lock order is class then session; no other method takes both.
func (repo *classRepository) SetActiveCode(classID int, code *string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classID]
	if !ok {
		return class.ErrNotFound
	}
	if code != nil && !repo.codeIsLive(classID, *code) {
		return nil
	}
	cls.ActiveCode = code
	cls.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *classRepository) codeIsLive(classID int, code string) bool {
	repo.sessions.RLock()
	defer repo.sessions.RUnlock()

	for _, sess := range repo.sessions.table {
		if sess.ClassID == classID && sess.Code == code && sess.IsActive {
			return true
		}
	}
	return false
}
