package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
)

func Test_attendanceApi_sessionLifecycle(t *testing.T) {
	teacher := createUser(t, "Att Teacher", "attteacher", user.TeacherRoles, true)
	rival := createUser(t, "Att Rival", "attrival", user.TeacherRoles, true)
	student := createUser(t, "Att Student", "attstudent", user.StudentRoles, true)
	cls := createClass(t, "A-10A", teacher, student)

	teacherToken := getToken(t, teacher)
	body := []byte(fmt.Sprintf(`{"class_id":%d}`, cls.ID))

	var opened SessionResponse

	t.Run("open", func(t *testing.T) {
		tests := []httpTest{
			{name: "auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
			{name: "teacher required", body: body, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
			{
				name: "owner required", body: body, token: getToken(t, rival), wantCode: http.StatusForbidden,
				wantData: marshalObj(t, httpErr{Error: attendance.ErrNotOwner.Error()}),
			},
			{name: "class required", body: []byte(`{}`), token: teacherToken, wantCode: http.StatusBadRequest},
			{name: "unknown class", body: []byte(`{"class_id":13377331}`), token: teacherToken, wantCode: http.StatusNotFound},
			{name: "opened", body: body, token: teacherToken, wantCode: http.StatusCreated},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", tt.token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)

				if tt.name == "opened" {
					if err := json.Unmarshal(rec.Body.Bytes(), &opened); err != nil {
						t.Fatalf("unmarshalling: %v", err)
					}
					if !opened.Session.IsActive || opened.Session.Code == "" {
						t.Errorf("opened = %+v", opened.Session)
					}
					if opened.Class.ActiveCode == nil || *opened.Class.ActiveCode != opened.Session.Code {
						t.Errorf("published code = %v, want %q", opened.Class.ActiveCode, opened.Session.Code)
					}
				}
			})
		}
	})

	t.Run("active session lookup", func(t *testing.T) {
		path := fmt.Sprintf("/v1/sessions/class/%d", cls.ID)

		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, rival))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodGet, path, teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
		}
		var sess attendance.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if sess.ID != opened.Session.ID {
			t.Errorf("active session = %d, want %d", sess.ID, opened.Session.ID)
		}
	})

	t.Run("reopen supersedes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
		}
		var reopened SessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &reopened); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if reopened.Session.ID == opened.Session.ID {
			t.Error("reopen reused the session")
		}

		// the stale code no longer works
		markBody := []byte(fmt.Sprintf(`{"code":%q}`, opened.Session.Code))
		req, rec = newAuthRequest(http.MethodPost, "/v1/sessions/attendance", getToken(t, student), markBody)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: attendance.ErrInvalidCode.Error()})}
		checkCodeAndData(t, tt, rec)

		opened = reopened
	})

	t.Run("end", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "owner required", body: body, token: getToken(t, rival), wantCode: http.StatusForbidden,
				wantData: marshalObj(t, httpErr{Error: attendance.ErrNotOwner.Error()}),
			},
			{name: "ended", body: body, token: teacherToken, wantCode: http.StatusOK},
			{
				name: "ended twice", body: body, token: teacherToken, wantCode: http.StatusNotFound,
				wantData: marshalObj(t, httpErr{Error: attendance.ErrNoActiveSession.Error()}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/end", tt.token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}

func Test_attendanceApi_mark(t *testing.T) {
	teacher := createUser(t, "Mrk Teacher", "mrkteacher", user.TeacherRoles, true)
	student := createUser(t, "Mrk Student", "mrkstudent", user.StudentRoles, true)
	outsider := createUser(t, "Mrk Outsider", "mrkoutsider", user.StudentRoles, true)
	cls := createClass(t, "K-10A", teacher, student)

	sess, _, err := attSvc.Open(cls.ID, teacher.ID)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}

	markBody := func(code string) []byte {
		return []byte(fmt.Sprintf(`{"code":%q}`, code))
	}

	tests := []httpTest{
		{name: "auth required", body: markBody(sess.Code), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "student required", body: markBody(sess.Code), token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "code required", body: []byte(`{"code":"  "}`), token: getToken(t, student), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"code": "this field is required"}),
		},
		{
			name: "unknown code", body: markBody("NOPE99"), token: getToken(t, student), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: attendance.ErrInvalidCode.Error()}),
		},
		{
			name: "not enrolled", body: markBody(sess.Code), token: getToken(t, outsider), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: attendance.ErrNotEnrolled.Error()}),
		},
		{name: "marked (padded code)", body: markBody(" " + sess.Code + " "), token: getToken(t, student), wantCode: http.StatusOK},
		{
			name: "marked twice", body: markBody(sess.Code), token: getToken(t, student), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: attendance.ErrAlreadyMarked.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/attendance", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "marked (padded code)" {
				var res MarkResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatalf("unmarshalling: %v", err)
				}
				if res.ClassID != cls.ID || res.SessionID != sess.ID || res.PresentCount != 1 {
					t.Errorf("mark response = %+v", res)
				}
			}
		})
	}
}

func Test_attendanceApi_studentReport(t *testing.T) {
	teacher := createUser(t, "Srp Teacher", "srpteacher", user.TeacherRoles, true)
	student := createUser(t, "Srp Student", "srpstudent", user.StudentRoles, true)
	cls := createClass(t, "S-10A", teacher, student)

	// two sessions, one attended
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
	if _, _, err := attSvc.Open(cls.ID, teacher.ID); err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if _, err := attSvc.End(cls.ID, teacher.ID); err != nil {
		t.Fatalf("End(): %v", err)
	}

	t.Run("student required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/report", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("standing per enrolled class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/report", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
		}
		var report attendance.StudentReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if report.StudentID != student.ID || len(report.Classes) != 1 {
			t.Fatalf("report = %+v", report)
		}
		got := report.Classes[0]
		if got.ClassID != cls.ID || got.AttendedSessions != 1 || got.TotalSessions != 2 || got.Percentage != 50 {
			t.Errorf("standing = %+v", got)
		}
		if got.Status != attendance.StatusLow {
			t.Errorf("status = %q, want %q", got.Status, attendance.StatusLow)
		}
	})
}
