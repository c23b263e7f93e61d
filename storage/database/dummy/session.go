package dummydb

import (
	"time"

	"github.com/trezcool/darasa/core/attendance"
)

type sessionRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) attendance.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) clone(sess *attendance.Session) attendance.Session {
	out := *sess
	out.PresentStudents = append([]int(nil), sess.PresentStudents...)
	return out
}

// CreateSession supersedes any session still active for the class in the
// same critical section as the insert, so racing opens can never leave two
// live sessions behind.
func (repo *sessionRepository) CreateSession(sess attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if sess.IsActive {
		now := time.Now().UTC()
		for _, prev := range repo.db.table {
			if prev.ClassID == sess.ClassID && prev.IsActive {
				prev.IsActive = false
				prev.UpdatedAt = now
			}
		}
	}
	repo.db.seq++
	sess.ID = repo.db.seq
	repo.db.table[sess.ID] = &sess
	return repo.clone(&sess), nil
}

func (repo *sessionRepository) GetActiveSessionByClass(classID int) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.ClassID == classID && sess.IsActive {
			return repo.clone(sess), nil
		}
	}
	return attendance.Session{}, attendance.ErrNoActiveSession
}

func (repo *sessionRepository) GetActiveSessionByCode(code string) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.Code == code && sess.IsActive {
			return repo.clone(sess), nil
		}
	}
	return attendance.Session{}, attendance.ErrNoActiveSession
}

func (repo *sessionRepository) GetActiveSessionByClassAndCode(classID int, code string) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.ClassID == classID && sess.Code == code && sess.IsActive {
			return repo.clone(sess), nil
		}
	}
	return attendance.Session{}, attendance.ErrNoActiveSession
}

func (repo *sessionRepository) DeactivateSessions(classID int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	now := time.Now().UTC()
	for _, sess := range repo.db.table {
		if sess.ClassID == classID && sess.IsActive {
			sess.IsActive = false
			sess.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (repo *sessionRepository) EndActiveSession(classID int) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, sess := range repo.db.table {
		if sess.ClassID == classID && sess.IsActive {
			sess.IsActive = false
			sess.UpdatedAt = time.Now().UTC()
			return repo.clone(sess), nil
		}
	}
	return attendance.Session{}, attendance.ErrNoActiveSession
}

// AddPresentStudent is the serialization point for concurrent check-ins:
// duplicate check and append happen under the table lock.
func (repo *sessionRepository) AddPresentStudent(sessionID, studentID int) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess, ok := repo.db.table[sessionID]
	if !ok || !sess.IsActive {
		return attendance.Session{}, attendance.ErrSessionClosed
	}
	if sess.HasStudent(studentID) {
		return attendance.Session{}, attendance.ErrAlreadyMarked
	}
	sess.PresentStudents = append(sess.PresentStudents, studentID)
	sess.UpdatedAt = time.Now().UTC()
	return repo.clone(sess), nil
}

func (repo *sessionRepository) CountSessions(classID, month, year int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, sess := range repo.db.table {
		if sess.ClassID == classID && matchesPeriod(sess, month, year) {
			n++
		}
	}
	return n, nil
}

func (repo *sessionRepository) CountAttendedSessions(classID, studentID, month, year int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, sess := range repo.db.table {
		if sess.ClassID == classID && matchesPeriod(sess, month, year) && sess.HasStudent(studentID) {
			n++
		}
	}
	return n, nil
}

func matchesPeriod(sess *attendance.Session, month, year int) bool {
	if month != 0 && sess.Month != month {
		return false
	}
	if year != 0 && sess.Year != year {
		return false
	}
	return true
}
