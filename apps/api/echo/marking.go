package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/scanmark/backend/core"
	"github.com/scanmark/backend/core/marking"
	"github.com/scanmark/backend/core/user"
)

type markingApi struct {
	conf   *core.Config
	svc    marking.Service
	usrSvc user.ServiceInterface
}

// registerMarkingAPI mounts the single grading controller endpoint. Every
// operation is multiplexed over the `action` parameter, on GET or POST.
//
// heartbeat is a liveness probe and must answer before any authentication;
// in test mode credentials travel with the request instead of a JWT. Both
// cases skip the JWT middleware and are resolved in the handler.
func registerMarkingAPI(
	g *echo.Group,
	conf *core.Config,
	svc marking.Service,
	usrSvc user.ServiceInterface,
) {
	api := markingApi{
		conf:   conf,
		svc:    svc,
		usrSvc: usrSvc,
	}

	jwtConf := newJWTConfig(conf)
	jwtConf.Skipper = func(ctx echo.Context) bool {
		if conf.TestMode {
			return true
		}
		return requestAction(ctx) == string(marking.ActionHeartbeat)
	}
	jwt := middleware.JWTWithConfig(jwtConf)

	g.GET("/marking", api.dispatch, jwt)
	g.POST("/marking", api.dispatch, jwt)
}

func (api *markingApi) dispatch(ctx echo.Context) error {
	var req marking.Request
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to Request")
	}
	if order, err := parseOrder(requestParam(ctx, "neworder")); err != nil {
		return marking.ErrInvalidOperation
	} else if order != nil {
		req.NewOrder = order
	}

	// liveness answers before any authentication
	if req.Action == marking.ActionHeartbeat {
		return ctx.JSON(http.StatusOK, marking.HeartbeatResult{Time: time.Now().Unix()})
	}

	usr, err := api.requestUser(ctx, &req)
	if err != nil {
		return err
	}

	res, err := api.svc.Dispatch(ctx.Request().Context(), usr, req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// requestUser resolves the acting user: in test mode from credentials on the
// request (with the draft pinned to the configured test submission),
// otherwise from the JWT claims.
func (api *markingApi) requestUser(ctx echo.Context, req *marking.Request) (user.User, error) {
	if api.conf.TestMode {
		uname := requestParam(ctx, "username")
		pwd := requestParam(ctx, "password")
		claims, err := authenticate(api.conf, uname, pwd, api.usrSvc)
		if err != nil {
			return user.User{}, err
		}
		id, err := claims.UserID()
		if err != nil {
			return user.User{}, err
		}
		usr, err := api.usrSvc.GetByID(id)
		if err != nil {
			return user.User{}, errors.Wrap(err, "finding user by ID")
		}
		req.DraftID = api.conf.Marking.TestSubmissionID
		return usr, nil
	}
	return getContextUser(ctx, api.usrSvc)
}

// requestAction reads the action from the query string or the form body.
func requestAction(ctx echo.Context) string {
	return requestParam(ctx, "action")
}

func requestParam(ctx echo.Context, name string) string {
	if v := ctx.QueryParam(name); v != "" {
		return v
	}
	v, _ := ctx.FormParams()
	return v.Get(name)
}

// parseOrder parses the comma-separated page id list of sortpages.
func parseOrder(csv string) ([]int, error) {
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	order := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		order = append(order, id)
	}
	return order, nil
}
