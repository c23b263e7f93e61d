package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type attendanceApi struct {
	usrSvc *user.Service
	clsSvc *class.Service
	svc    *attendance.Service
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc *user.Service,
	clsSvc *class.Service,
	svc *attendance.Service,
) {
	api := attendanceApi{usrSvc: usrSvc, clsSvc: clsSvc, svc: svc}

	sg := g.Group("/sessions", jwt)
	sg.POST("", api.open, teacherMiddleware(usrSvc))
	sg.POST("/end", api.end, teacherMiddleware(usrSvc))
	sg.GET("/class/:id", api.active, teacherMiddleware(usrSvc))
	sg.POST("/attendance", api.mark, studentMiddleware(usrSvc))

	g.GET("/students/me/report", api.studentReport, jwt, studentMiddleware(usrSvc))
}

// Handlers

// open starts a fresh attendance window for the caller's class, superseding
// any session still active on it.
func (api *attendanceApi) open(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, cls, err := api.svc.Open(data.ClassID, usr.ID)
	if err != nil {
		return errors.Wrap(err, "opening session")
	}
	return ctx.JSON(http.StatusCreated, SessionResponse{Session: sess, Class: cls})
}

func (api *attendanceApi) end(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.End(data.ClassID, usr.ID)
	if err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// active returns the class's currently open session; the owning teacher only.
func (api *attendanceApi) active(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return errHttpNotFound
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.clsSvc.GetByID(id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	if !cls.IsOwnedBy(usr.ID) {
		return errHttpForbidden
	}

	sess, err := api.svc.ActiveSession(id)
	if err != nil {
		return errors.Wrap(err, "finding active session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// mark checks the caller in against the session whose code they submitted.
func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.MarkAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkAttendance")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Mark(data.Code, usr.ID)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, MarkResponse{
		ClassID:      res.Class.ID,
		ClassName:    res.Class.Name,
		Subject:      res.Class.Subject,
		SessionID:    res.Session.ID,
		PresentCount: res.Session.PresentCount(),
	})
}

func (api *attendanceApi) studentReport(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	report, err := api.svc.StudentReport(usr.ID)
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, report)
}

type (
	SessionRequest struct {
		ClassID int `json:"class_id" validate:"required"`
	}

	SessionResponse struct {
		Session attendance.Session `json:"session"`
		Class   class.Class        `json:"class"`
	}

	MarkResponse struct {
		ClassID      int    `json:"class_id"`
		ClassName    string `json:"class_name"`
		Subject      string `json:"subject"`
		SessionID    int    `json:"session_id"`
		PresentCount int    `json:"present_count"`
	}
)

func (sr *SessionRequest) Validate() error {
	return core.Validate.Struct(sr)
}
