package main

import (
	"log"
	"os"
	"strings"
	"testing"

	"github.com/trezcool/darasa/core/user"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

func TestMain(m *testing.M) {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	os.Exit(m.Run())
}

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	return &commandLine{
		usrRepo:  dummydb.NewUserRepository(db),
		clsRepo:  dummydb.NewClassRepository(db),
		sessRepo: dummydb.NewSessionRepository(db),
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser: no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "adduser: no email", args: []string{"adduser", "-username", "awe"}, wantErr: errHelp},
		{name: "adduser: no password", args: []string{"adduser", "-username", "awe", "-email", "awe@test.cd"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("migrate requires postgres", func(t *testing.T) {
		err := cli.run([]string{"admin", "migrate", "up"})
		if err == nil || !strings.Contains(err.Error(), "postgres") {
			t.Errorf("cli.run() error = %v, want postgres engine error", err)
		}
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte("LolC@t123!"), nil
	}

	t.Run("creates an admin", func(t *testing.T) {
		args := []string{"admin", "adduser", "-username", "Boss", "-email", "Boss@test.cd", "-name", "The Boss", "-admin"}
		if err := cli.run(args); err != nil {
			t.Fatalf("cli.run(): %v", err)
		}

		usr, err := cli.usrRepo.GetUserByUsername("boss")
		if err != nil {
			t.Fatalf("GetUserByUsername(): %v", err)
		}
		if !usr.IsAdmin() || !usr.IsActive {
			t.Errorf("user = %+v", usr)
		}
		if err := usr.CheckPassword("LolC@t123!"); err != nil {
			t.Errorf("CheckPassword(): %v", err)
		}
	})

	t.Run("updates an existing user", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte("NewC@t123!"), nil
		}
		args := []string{"admin", "adduser", "-username", "boss", "-email", "boss@test.cd", "-teacher", "-dept", "Science"}
		if err := cli.run(args); err != nil {
			t.Fatalf("cli.run(): %v", err)
		}

		usr, err := cli.usrRepo.GetUserByUsername("boss")
		if err != nil {
			t.Fatalf("GetUserByUsername(): %v", err)
		}
		if !usr.IsTeacher() || usr.Department != "Science" {
			t.Errorf("user = %+v", usr)
		}
		if err := usr.CheckPassword("NewC@t123!"); err != nil {
			t.Errorf("CheckPassword(): %v", err)
		}
	})
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)

	if err := cli.seed(); err != nil {
		t.Fatalf("cli.seed(): %v", err)
	}

	admin, err := cli.usrRepo.GetUserByEmail("admin@school.edu")
	if err != nil {
		t.Fatalf("GetUserByEmail(): %v", err)
	}
	if !admin.IsAdmin() {
		t.Errorf("admin = %+v", admin)
	}

	teachers, err := cli.usrRepo.FilterUsers(user.QueryFilter{Roles: []string{user.RoleTeacher}})
	if err != nil {
		t.Fatalf("FilterUsers(): %v", err)
	}
	if len(teachers) != 4 {
		t.Errorf("%d teachers, want 4", len(teachers))
	}

	students, err := cli.usrRepo.FilterUsers(user.QueryFilter{Roles: []string{user.RoleStudent}})
	if err != nil {
		t.Fatalf("FilterUsers(): %v", err)
	}
	if len(students) != 80 {
		t.Errorf("%d students, want 80", len(students))
	}

	cls, err := cli.clsRepo.GetClassByID(1)
	if err != nil {
		t.Fatalf("GetClassByID(): %v", err)
	}
	if cls.Name != "10A" || len(cls.StudentIDs) != 20 {
		t.Errorf("class = %+v", cls)
	}
}
