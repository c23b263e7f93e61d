package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

func Test_classApi_create(t *testing.T) {
	admin := createUser(t, "Cls Admin", "clsadmin", user.AdminRoles, true)
	teacher := createUser(t, "Cls Teacher", "clsteacher", user.TeacherRoles, true)

	body := []byte(fmt.Sprintf(`{"name":"10A","subject":"Mathematics","teacher_id":%d}`, teacher.ID))
	badOwner := []byte(fmt.Sprintf(`{"name":"10A","subject":"Mathematics","teacher_id":%d}`, admin.ID))

	tests := []httpTest{
		{name: "auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", body: body, token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{
			name: "missing fields", body: []byte(`{}`), token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"name":       "this field is required",
				"subject":    "this field is required",
				"teacher_id": "this field is required",
			}),
		},
		{
			name: "owner must be a teacher", body: badOwner, token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"teacher_id": class.ErrNotTeacher.Error()}),
		},
		{name: "created", body: body, token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/classes", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_query(t *testing.T) {
	teacher1 := createUser(t, "Qry Teacher1", "qryteacher1", user.TeacherRoles, true)
	teacher2 := createUser(t, "Qry Teacher2", "qryteacher2", user.TeacherRoles, true)
	student := createUser(t, "Qry Student", "qrystudent", user.StudentRoles, true)
	loner := createUser(t, "Qry Loner", "qryloner", user.StudentRoles, true)

	cls1 := createClass(t, "Q-10A", teacher1, student)
	createClass(t, "Q-10B", teacher2)

	tests := []struct {
		name  string
		usr   user.User
		want  []int // expected class IDs
		exact bool
	}{
		{name: "teacher sees own", usr: teacher1, want: []int{cls1.ID}, exact: true},
		{name: "student sees enrolled", usr: student, want: []int{cls1.ID}, exact: true},
		{name: "unenrolled student sees none", usr: loner, want: nil, exact: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/classes", getToken(t, tt.usr))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
			}
			var classes []class.Class
			if err := json.Unmarshal(rec.Body.Bytes(), &classes); err != nil {
				t.Fatalf("unmarshalling: %v", err)
			}
			if len(classes) != len(tt.want) {
				t.Fatalf("got %d classes, want %d", len(classes), len(tt.want))
			}
			for i, id := range tt.want {
				if classes[i].ID != id {
					t.Errorf("classes[%d].ID = %d, want %d", i, classes[i].ID, id)
				}
			}
		})
	}

	t.Run("retrieve hides foreign classes", func(t *testing.T) {
		path := fmt.Sprintf("/v1/classes/%d", cls1.ID)

		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, teacher2))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_classApi_manageStudent(t *testing.T) {
	admin := createUser(t, "Mng Admin", "mngadmin", user.AdminRoles, true)
	teacher := createUser(t, "Mng Teacher", "mngteacher", user.TeacherRoles, true)
	student := createUser(t, "Mng Student", "mngstudent", user.StudentRoles, true)
	cls := createClass(t, "M-10A", teacher)

	path := fmt.Sprintf("/v1/classes/%d/students", cls.ID)
	addBody := []byte(fmt.Sprintf(`{"student_id":%d,"action":"add"}`, student.ID))
	removeBody := []byte(fmt.Sprintf(`{"student_id":%d,"action":"remove"}`, student.ID))

	tests := []httpTest{
		{name: "admin required", body: addBody, token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "bad action", body: []byte(fmt.Sprintf(`{"student_id":%d,"action":"expel"}`, student.ID)), token: getToken(t, admin), wantCode: http.StatusBadRequest},
		{name: "added", body: addBody, token: getToken(t, admin), wantCode: http.StatusOK},
		{
			name: "added twice", body: addBody, token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: class.ErrAlreadyEnrolled.Error()}),
		},
		{name: "removed", body: removeBody, token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	got, err := clsSvc.GetByID(cls.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if got.HasStudent(student.ID) {
		t.Error("student still enrolled")
	}
}

func Test_classApi_report(t *testing.T) {
	admin := createUser(t, "Rep Admin", "repadmin", user.AdminRoles, true)
	teacher := createUser(t, "Rep Teacher", "repteacher", user.TeacherRoles, true)
	rival := createUser(t, "Rep Rival", "reprival", user.TeacherRoles, true)
	student := createUser(t, "Rep Student", "repstudent", user.StudentRoles, true)
	cls := createClass(t, "R-10A", teacher, student)

	// one held session the student attended
	sess, _, err := attSvc.Open(cls.ID, teacher.ID)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if _, err := attSvc.Mark(sess.Code, student.ID); err != nil {
		t.Fatalf("Mark(): %v", err)
	}
	if _, err := attSvc.End(cls.ID, teacher.ID); err != nil {
		t.Fatalf("End(): %v", err)
	}

	path := fmt.Sprintf("/v1/classes/%d/report", cls.ID)

	t.Run("owning teacher or admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, rival))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	for _, usr := range []user.User{teacher, admin} {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, usr))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
		}

		var report attendance.ClassReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if report.TotalSessions != 1 || len(report.Students) != 1 {
			t.Fatalf("report = %+v", report)
		}
		if got := report.Students[0]; got.StudentID != student.ID || got.AttendedSessions != 1 || got.Percentage != 100 {
			t.Errorf("student row = %+v", got)
		}
	}

	t.Run("bad period", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?month=13", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}
