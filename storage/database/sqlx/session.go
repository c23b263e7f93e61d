package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core/attendance"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) attendance.Repository {
	return &sessionRepository{db: db}
}

type dbSession struct {
	ID              int           `db:"id"`
	ClassID         int           `db:"class_id"`
	Date            time.Time     `db:"date"`
	Month           int           `db:"month"`
	Year            int           `db:"year"`
	Code            string        `db:"code"`
	IsActive        bool          `db:"is_active"`
	PresentStudents pq.Int64Array `db:"present_students"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (r dbSession) toSession() attendance.Session {
	sess := attendance.Session{
		ID:              r.ID,
		ClassID:         r.ClassID,
		Date:            r.Date,
		Month:           r.Month,
		Year:            r.Year,
		Code:            r.Code,
		IsActive:        r.IsActive,
		PresentStudents: make([]int, 0, len(r.PresentStudents)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, id := range r.PresentStudents {
		sess.PresentStudents = append(sess.PresentStudents, int(id))
	}
	return sess
}

const sessionColumns = `id, class_id, date, month, year, code, is_active, present_students, created_at, updated_at`

func (repo *sessionRepository) getWhere(where string, args ...interface{}) (attendance.Session, error) {
	var row dbSession
	if err := repo.db.Get(&row, `SELECT `+sessionColumns+` FROM session WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Session{}, attendance.ErrNoActiveSession
		}
		return attendance.Session{}, err
	}
	return row.toSession(), nil
}

// createSessionRetries bounds how often a racing open re-runs its
// supersede+insert transaction after losing to the partial unique indexes.
const createSessionRetries = 3

// CreateSession deactivates the class's live session and inserts the new one
// in one transaction. session_active_class_idx rejects the loser of two
// racing opens with a unique violation; that loser re-runs the transaction
// and supersedes the winner instead of surfacing a storage error.
func (repo *sessionRepository) CreateSession(sess attendance.Session) (attendance.Session, error) {
	var err error
	for i := 0; i < createSessionRetries; i++ {
		sess.ID, err = repo.supersedeAndCreate(sess)
		if err == nil {
			return sess, nil
		}
		if !isUniqueViolation(err) {
			break
		}
	}
	return attendance.Session{}, err
}

func (repo *sessionRepository) supersedeAndCreate(sess attendance.Session) (int, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if sess.IsActive {
		if _, err := tx.Exec(
			`UPDATE session SET is_active = FALSE, updated_at = $2 WHERE class_id = $1 AND is_active`,
			sess.ClassID, time.Now().UTC(),
		); err != nil {
			return 0, err
		}
	}

	var id int
	if err := tx.QueryRow(
		`INSERT INTO session (class_id, date, month, year, code, is_active, present_students, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, '{}', $7, $8)
		 RETURNING id`,
		sess.ClassID, sess.Date, sess.Month, sess.Year, sess.Code, sess.IsActive, sess.CreatedAt, sess.UpdatedAt,
	).Scan(&id); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

func (repo *sessionRepository) GetActiveSessionByClass(classID int) (attendance.Session, error) {
	return repo.getWhere(`class_id = $1 AND is_active`, classID)
}

func (repo *sessionRepository) GetActiveSessionByCode(code string) (attendance.Session, error) {
	return repo.getWhere(`code = $1 AND is_active`, code)
}

func (repo *sessionRepository) GetActiveSessionByClassAndCode(classID int, code string) (attendance.Session, error) {
	return repo.getWhere(`class_id = $1 AND code = $2 AND is_active`, classID, code)
}

func (repo *sessionRepository) DeactivateSessions(classID int) (int, error) {
	res, err := repo.db.Exec(
		`UPDATE session SET is_active = FALSE, updated_at = $2 WHERE class_id = $1 AND is_active`,
		classID, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *sessionRepository) EndActiveSession(classID int) (attendance.Session, error) {
	var row dbSession
	err := repo.db.Get(&row,
		`UPDATE session SET is_active = FALSE, updated_at = $2
		 WHERE class_id = $1 AND is_active
		 RETURNING `+sessionColumns,
		classID, time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		return attendance.Session{}, attendance.ErrNoActiveSession
	}
	if err != nil {
		return attendance.Session{}, err
	}
	return row.toSession(), nil
}

// AddPresentStudent relies on a single conditional UPDATE so Postgres
// serializes concurrent check-ins on the session row; the duplicate check
// and the append cannot interleave.
func (repo *sessionRepository) AddPresentStudent(sessionID, studentID int) (attendance.Session, error) {
	var row dbSession
	err := repo.db.Get(&row,
		`UPDATE session
		 SET present_students = array_append(present_students, $2), updated_at = $3
		 WHERE id = $1 AND is_active AND NOT ($2 = ANY(present_students))
		 RETURNING `+sessionColumns,
		sessionID, studentID, time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		// closed session or duplicate mark; disambiguate
		var isActive bool
		if getErr := repo.db.Get(&isActive, `SELECT is_active FROM session WHERE id = $1`, sessionID); getErr != nil {
			if getErr == sql.ErrNoRows {
				return attendance.Session{}, attendance.ErrSessionClosed
			}
			return attendance.Session{}, getErr
		}
		if !isActive {
			return attendance.Session{}, attendance.ErrSessionClosed
		}
		return attendance.Session{}, attendance.ErrAlreadyMarked
	}
	if err != nil {
		return attendance.Session{}, err
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) CountSessions(classID, month, year int) (int, error) {
	var n int
	err := repo.db.Get(&n,
		`SELECT COUNT(*) FROM session
		 WHERE class_id = $1 AND ($2 = 0 OR month = $2) AND ($3 = 0 OR year = $3)`,
		classID, month, year,
	)
	return n, err
}

func (repo *sessionRepository) CountAttendedSessions(classID, studentID, month, year int) (int, error) {
	var n int
	err := repo.db.Get(&n,
		`SELECT COUNT(*) FROM session
		 WHERE class_id = $1 AND ($3 = 0 OR month = $3) AND ($4 = 0 OR year = $4)
		   AND $2 = ANY(present_students)`,
		classID, studentID, month, year,
	)
	return n, err
}
