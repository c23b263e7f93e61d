package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/class"
	"github.com/trezcool/darasa/core/user"
	broadcastsvc "github.com/trezcool/darasa/services/broadcast"
)

var errBadTopic = echo.NewHTTPError(http.StatusBadRequest, "invalid topic")

type liveApi struct {
	usrSvc   *user.Service
	clsSvc   *class.Service
	hub      *broadcastsvc.Hub
	upgrader websocket.Upgrader
}

func registerLiveAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc *user.Service, clsSvc *class.Service, hub *broadcastsvc.Hub) {
	api := liveApi{
		usrSvc: usrSvc,
		clsSvc: clsSvc,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	g.GET("/live", api.subscribe, jwt)
}

// subscribe upgrades the connection and streams check-in events for the
// requested topics. A caller may only watch topics they are entitled to:
// teachers their own feed and their classes, students the classes they are
// enrolled in, admins anything.
func (api *liveApi) subscribe(ctx echo.Context) error {
	topics := ctx.QueryParams()["topic"]
	if len(topics) == 0 {
		return errBadTopic
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, topic := range topics {
		if err := api.authorizeTopic(usr, topic); err != nil {
			return err
		}
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}
	if _, err := api.hub.Subscribe(conn, topics...); err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "subscribing")
	}
	return nil
}

func (api *liveApi) authorizeTopic(usr user.User, topic string) error {
	i := strings.IndexByte(topic, ':')
	if i < 0 {
		return errBadTopic
	}
	id, err := strconv.Atoi(topic[i+1:])
	if err != nil {
		return errBadTopic
	}

	if usr.IsAdmin() {
		return nil
	}
	switch topic[:i+1] {
	case "teacher:": // teacher feed; own only
		if topic == attendance.TopicTeacher(usr.ID) {
			return nil
		}
	case "class:":
		cls, err := api.clsSvc.GetByID(id)
		if err != nil {
			return errors.Wrap(err, "finding class by ID")
		}
		if cls.IsOwnedBy(usr.ID) || cls.HasStudent(usr.ID) {
			return nil
		}
	default:
		return errBadTopic
	}
	return errHttpForbidden
}
