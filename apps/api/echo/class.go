package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
)

type classApi struct {
	usrSvc *user.Service
	svc    *class.Service
	attSvc *attendance.Service
}

func registerClassAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	usrSvc *user.Service,
	svc *class.Service,
	attSvc *attendance.Service,
) {
	api := classApi{usrSvc: usrSvc, svc: svc, attSvc: attSvc}

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, adminMiddleware(usrSvc))
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id/students", api.manageStudent, adminMiddleware(usrSvc))
	cg.GET("/:id/report", api.report)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}

	return ctx.JSON(http.StatusCreated, cls)
}

// query lists classes visible to the caller: admins see all of them,
// teachers their own, students the ones they are enrolled in.
func (api *classApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	classes, err := api.svc.QueryForUser(usr)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, err := api.getVisibleClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) manageStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return errHttpNotFound
	}

	var data class.Enrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Enrollment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.ManageStudent(id, data)
	if err != nil {
		if errors.Cause(err) == class.ErrAlreadyEnrolled {
			return echo.NewHTTPError(http.StatusBadRequest, class.ErrAlreadyEnrolled.Error())
		}
		return errors.Wrap(err, "managing enrollment")
	}
	return ctx.JSON(http.StatusOK, cls)
}

// report is restricted to admins and the class's owning teacher.
func (api *classApi) report(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return errHttpNotFound
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.GetByID(id)
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	if !(usr.IsAdmin() || cls.IsOwnedBy(usr.ID)) {
		return errHttpForbidden
	}

	var period ReportPeriod
	if err := period.Bind(ctx); err != nil {
		return err
	}

	report, err := api.attSvc.ClassReport(id, period.Month, period.Year)
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, report)
}

// getVisibleClass loads the :id class and hides it from callers it does not
// belong to.
func (api *classApi) getVisibleClass(ctx echo.Context) (class.Class, error) {
	id, err := intParam(ctx, "id")
	if err != nil {
		return class.Class{}, errHttpNotFound
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "getting context user")
	}
	cls, err := api.svc.GetByID(id)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "finding class by ID")
	}
	if !(usr.IsAdmin() || cls.IsOwnedBy(usr.ID) || cls.HasStudent(usr.ID)) {
		return class.Class{}, errHttpNotFound
	}
	return cls, nil
}
