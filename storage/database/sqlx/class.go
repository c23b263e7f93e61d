package sqlxrepos

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core/class"
)

func itoa(i int) string { return strconv.Itoa(i) }

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{db: db}
}

type dbClass struct {
	ID         int            `db:"id"`
	Name       string         `db:"name"`
	Subject    string         `db:"subject"`
	TeacherID  int            `db:"teacher_id"`
	StudentIDs pq.Int64Array  `db:"student_ids"`
	ActiveCode sql.NullString `db:"active_code"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r dbClass) toClass() class.Class {
	cls := class.Class{
		ID:         r.ID,
		Name:       r.Name,
		Subject:    r.Subject,
		TeacherID:  r.TeacherID,
		StudentIDs: make([]int, 0, len(r.StudentIDs)),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	for _, id := range r.StudentIDs {
		cls.StudentIDs = append(cls.StudentIDs, int(id))
	}
	if r.ActiveCode.Valid {
		code := r.ActiveCode.String
		cls.ActiveCode = &code
	}
	return cls
}

const classColumns = `id, name, subject, teacher_id, student_ids, active_code, created_at, updated_at`

func (repo *classRepository) getWhere(where string, args ...interface{}) (class.Class, error) {
	var row dbClass
	if err := repo.db.Get(&row, `SELECT `+classColumns+` FROM class WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, err
	}
	return row.toClass(), nil
}

func (repo *classRepository) queryWhere(where string, args ...interface{}) ([]class.Class, error) {
	var rows []dbClass
	if err := repo.db.Select(&rows, `SELECT `+classColumns+` FROM class WHERE `+where+` ORDER BY id`, args...); err != nil {
		return nil, err
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass())
	}
	return classes, nil
}

func (repo *classRepository) CreateClass(cls class.Class) (class.Class, error) {
	err := repo.db.QueryRow(
		`INSERT INTO class (name, subject, teacher_id, student_ids, created_at, updated_at)
		 VALUES ($1, $2, $3, '{}', $4, $5)
		 RETURNING id`,
		cls.Name, cls.Subject, cls.TeacherID, cls.CreatedAt, cls.UpdatedAt,
	).Scan(&cls.ID)
	return cls, err
}

func (repo *classRepository) GetClassByID(id int) (class.Class, error) {
	return repo.getWhere(`id = $1`, id)
}

func (repo *classRepository) GetClassByActiveCode(code string) (class.Class, error) {
	return repo.getWhere(`active_code = $1`, code)
}

func (repo *classRepository) QueryAllClasses() ([]class.Class, error) {
	return repo.queryWhere(`TRUE`)
}

func (repo *classRepository) QueryClassesByTeacher(teacherID int) ([]class.Class, error) {
	return repo.queryWhere(`teacher_id = $1`, teacherID)
}

func (repo *classRepository) QueryClassesByStudent(studentID int) ([]class.Class, error) {
	return repo.queryWhere(`$1 = ANY(student_ids)`, studentID)
}

func (repo *classRepository) AddStudent(classID, studentID int) (class.Class, error) {
	var row dbClass
	err := repo.db.Get(&row,
		`UPDATE class
		 SET student_ids = array_append(student_ids, $2), updated_at = $3
		 WHERE id = $1 AND NOT ($2 = ANY(student_ids))
		 RETURNING `+classColumns,
		classID, studentID, time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		// missing class or duplicate enrollment; disambiguate
		if _, getErr := repo.GetClassByID(classID); getErr != nil {
			return class.Class{}, getErr
		}
		return class.Class{}, class.ErrAlreadyEnrolled
	}
	if err != nil {
		return class.Class{}, err
	}
	return row.toClass(), nil
}

func (repo *classRepository) RemoveStudent(classID, studentID int) (class.Class, error) {
	var row dbClass
	err := repo.db.Get(&row,
		`UPDATE class
		 SET student_ids = array_remove(student_ids, $2), updated_at = $3
		 WHERE id = $1
		 RETURNING `+classColumns,
		classID, studentID, time.Now().UTC(),
	)
	if err == sql.ErrNoRows {
		return class.Class{}, class.ErrNotFound
	}
	if err != nil {
		return class.Class{}, err
	}
	return row.toClass(), nil
}

// SetActiveCode publishes (or clears) the class's redeemable code.
// A non-nil code is only written while its session is still active, so an
// open superseded mid-flight cannot overwrite the winner's published code.
func (repo *classRepository) SetActiveCode(classID int, code *string) error {
	if code == nil {
		res, err := repo.db.Exec(
			`UPDATE class SET active_code = NULL, updated_at = $2 WHERE id = $1`,
			classID, time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return class.ErrNotFound
		}
		return nil
	}

	_, err := repo.db.Exec(
		`UPDATE class SET active_code = $2, updated_at = $3
		 WHERE id = $1
		   AND EXISTS (SELECT 1 FROM session WHERE class_id = $1 AND code = $2 AND is_active)`,
		classID, *code, time.Now().UTC(),
	)
	return err
}
