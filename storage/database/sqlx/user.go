package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// dbUser mirrors the "app_user" table; pq arrays do not unmarshal into plain
// Go slices, hence the intermediate row type.
type dbUser struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     sql.NullString `db:"username"`
	Email        sql.NullString `db:"email"`
	RollNumber   sql.NullString `db:"roll_number"`
	Department   sql.NullString `db:"department"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (r dbUser) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		RollNumber:   r.RollNumber.String,
		Department:   r.Department.String,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time
	}
	return usr
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const userColumns = `id, name, username, email, roll_number, department, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) getWhere(where string, args ...interface{}) (user.User, error) {
	var row dbUser
	if err := repo.db.Get(&row, `SELECT `+userColumns+` FROM app_user WHERE `+where, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo *userRepository) queryWhere(where string, args ...interface{}) ([]user.User, error) {
	var rows []dbUser
	if err := repo.db.Select(&rows, `SELECT `+userColumns+` FROM app_user WHERE `+where, args...); err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make(pq.Int64Array, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, int64(usr.ID))
	}

	var clash struct {
		Username sql.NullString `db:"username"`
		Email    sql.NullString `db:"email"`
	}
	err := repo.db.Get(&clash,
		`SELECT username, email FROM app_user
		 WHERE (username = $1 OR email = $2) AND NOT (id = ANY($3)) LIMIT 1`,
		nullStr(username), nullStr(email), exclIDs,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if clash.Username.Valid && clash.Username.String == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	err := repo.db.QueryRow(
		`INSERT INTO app_user (name, username, email, roll_number, department, is_active, roles, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		usr.Name, nullStr(usr.Username), nullStr(usr.Email), nullStr(usr.RollNumber), nullStr(usr.Department),
		usr.IsActive, pq.StringArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	return usr, err
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	return repo.queryWhere(`TRUE ORDER BY id`)
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	return repo.getWhere(`id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getWhere(`username = $1`, username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getWhere(`email = $1`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getWhere(`username = $1 OR email = $1`, username)
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	where := `TRUE`
	args := make([]interface{}, 0, 3)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND (name ILIKE $1 OR username ILIKE $1 OR email ILIKE $1)`
	}
	if len(filter.Roles) > 0 {
		// role prefix match, e.g. "teacher:" matches any teacher role
		prefixes := make(pq.StringArray, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			prefixes = append(prefixes, r+"%")
		}
		args = append(args, prefixes)
		where += ` AND EXISTS (SELECT 1 FROM unnest(roles) role WHERE role LIKE ANY($` + itoa(len(args)) + `))`
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where += ` AND is_active = $` + itoa(len(args))
	}
	return repo.queryWhere(where+` ORDER BY id`, args...)
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	var row dbUser
	err := repo.db.Get(&row,
		`UPDATE app_user SET
			name = $2,
			username = $3,
			email = $4,
			roll_number = $5,
			department = $6,
			roles = COALESCE($7, roles),
			password_hash = COALESCE($8, password_hash),
			is_active = COALESCE($9, is_active),
			updated_at = $10
		 WHERE id = $1
		 RETURNING `+userColumns,
		usr.ID, usr.Name, nullStr(usr.Username), nullStr(usr.Email), nullStr(usr.RollNumber), nullStr(usr.Department),
		rolesOrNil(usr.Roles), hashOrNil(usr.PasswordHash), isActive, usr.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo *userRepository) SetLastLogin(usr user.User) (user.User, error) {
	res, err := repo.db.Exec(`UPDATE app_user SET last_login = $2 WHERE id = $1`, usr.ID, usr.LastLogin)
	if err != nil {
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	idArr := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		idArr = append(idArr, int64(id))
	}
	_, err := repo.db.Exec(`DELETE FROM app_user WHERE id = ANY($1)`, idArr)
	return err
}

func rolesOrNil(roles []string) interface{} {
	if roles == nil {
		return nil
	}
	return pq.StringArray(roles)
}

func hashOrNil(hash []byte) interface{} {
	if hash == nil {
		return nil
	}
	return hash
}
