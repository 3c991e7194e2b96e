package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ipelms/ipelms/internal/config"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// Health returns a health-check handler used by load balancers and
// monitoring systems. It reports environment and site name so deployments
// can be validated.
func Health(cfg config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":      "ok",
			"app":         "ipelms",
			"version":     Version,
			"environment": cfg.Env,
			"site_name":   cfg.SiteName,
		})
	}
}
