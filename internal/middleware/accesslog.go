package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// AccessLog writes one line per request on response egress: method, path,
// status, latency, client IP and the resolved user id ("anon" when
// anonymous). It runs outermost so the line is written even when a handler
// fails; handler errors are committed to the response first so the logged
// status is the one the client saw.
func AccessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			who := "anon"
			if ident := CurrentIdentity(c); !ident.Anonymous() {
				who = strconv.FormatUint(ident.ID, 10)
			}
			c.Logger().Infof("%s %s status=%d latency=%s ip=%s user=%s",
				c.Request().Method,
				c.Request().URL.Path,
				c.Response().Status,
				time.Since(start).Round(time.Microsecond),
				c.RealIP(),
				who,
			)
			return nil
		}
	}
}
