package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user    *userTable
		class   *classTable
		session *sessionTable
	}

	userTable struct {
		sync.RWMutex
		seq   int
		table map[int]*user.User
	}

	classTable struct {
		sync.RWMutex
		seq   int
		table map[int]*class.Class
	}

	sessionTable struct {
		sync.RWMutex
		seq   int
		table map[int]*attendance.Session
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[int]*user.User)},
		class:   &classTable{table: make(map[int]*class.Class)},
		session: &sessionTable{table: make(map[int]*attendance.Session)},
	}
	return db, nil
}
