package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "StockCast/pkg/logger"
)

type panicBody struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    []panicItem `json:"data"`
}

type panicItem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Recover turns a handler panic into a 500 in the standard error envelope.
// The stack is logged, never returned.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				l.Error("panic recovered",
					applogger.Error(perr),
					applogger.String("route", c.Path()),
					applogger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					applogger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, panicBody{
					Status:  http.StatusInternalServerError,
					Message: http.StatusText(http.StatusInternalServerError),
					Data:    []panicItem{{Code: "INTERNAL", Message: "something went wrong"}},
				})
			}()
			return next(c)
		}
	}
}
