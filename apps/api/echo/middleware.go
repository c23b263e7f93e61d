package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/user"
)

// roleMiddleware gates a route group behind user.Authorize: the context user
// must hold at least one of the required role prefixes.
func roleMiddleware(svc *user.Service, rolePrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if err := user.Authorize(usr, rolePrefixes...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

func adminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleAdmin)
}

func teacherMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleTeacher)
}

func studentMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleStudent)
}
