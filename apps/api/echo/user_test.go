package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/darasa/core/user"
)

func Test_userApi_login(t *testing.T) {
	createUser(t, "Login Hero", "loginhero", user.StudentRoles, true)
	createUser(t, "Login Dog", "logindog", user.StudentRoles, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: []byte(`{"username":"whodis","password":"lol"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: []byte(`{"username":"loginhero","password":"nope"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: []byte(`{"username":"logindog","password":"LolC@t123!"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: []byte(`{"username":"loginhero","password":"LolC@t123!"}`),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email (case-insensitive)", body: []byte(`{"username":"LoginHero@test.cd","password":"LolC@t123!"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/login", "", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	admin := createUser(t, "Reg Admin", "regadmin", user.AdminRoles, true)
	student := createUser(t, "Reg Student", "regstudent", user.StudentRoles, true)

	body := []byte(`{
		"name": "New Teacher",
		"username": "newteacher",
		"email": "newteacher@test.cd",
		"department": "Science",
		"password": "LolC@t123!",
		"password_confirm": "LolC@t123!",
		"roles": ["teacher:"]
	}`)

	tests := []httpTest{
		{name: "auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", body: body, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "registered", body: body, token: getToken(t, admin), wantCode: http.StatusCreated},
		{
			name: "duplicate username", body: body, token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := usrSvc.GetByUsername("newteacher")
	if err != nil {
		t.Fatalf("GetByUsername(): %v", err)
	}
	if !usr.IsTeacher() || !usr.IsActive {
		t.Errorf("registered user = %+v", usr)
	}
}

func Test_userApi_query(t *testing.T) {
	admin := createUser(t, "Query Admin", "queryadmin", user.AdminRoles, true)
	teacher := createUser(t, "Query Teacher", "queryteacher", user.TeacherRoles, true)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "get all", path: "/v1/users", token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "filter by role", path: "/v1/users?role=" + user.RoleAdmin, token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "roles list", path: "/v1/users/roles", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_tokenRefreshAndMe(t *testing.T) {
	student := createUser(t, "Fresh Hero", "freshhero", user.StudentRoles, true)
	token := getToken(t, student)

	t.Run("me", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, student)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("token refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func Test_userApi_destroy(t *testing.T) {
	admin := createUser(t, "Del Admin", "deladmin", user.AdminRoles, true)
	victim := createUser(t, "Del Victim", "delvictim", user.StudentRoles, true)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "not found", path: "/v1/users/13377331", token: adminToken, wantCode: http.StatusNotFound},
		{name: "no suicide", path: fmt.Sprintf("/v1/users/%d", admin.ID), token: adminToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "deleted", path: fmt.Sprintf("/v1/users/%d", victim.ID), token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	if _, err := usrSvc.GetByID(victim.ID); err != user.ErrNotFound {
		t.Errorf("GetByID() error = %v, wantErr %v", err, user.ErrNotFound)
	}
}
