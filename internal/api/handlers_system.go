package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/version"
)

// healthCheck reports the gateway's own state. It does not call oned.
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "healthy",
		"service":       "fireedge",
		"version":       version.Version,
		"commands":      s.catalog.Len(),
		"hook_sessions": s.relay.Registry().Count(),
	})
}

// getVersion returns the gateway build and the version oned reports.
func (s *Server) getVersion(c echo.Context) error {
	claims, _ := auth.GetClaims(c)
	ctx := c.Request().Context()

	out := map[string]interface{}{"fireedge": version.Get()}

	zone, err := s.zones.Resolve(ctx, claims.Session(), claims.Zone)
	if err != nil {
		return err
	}
	caller, err := s.connector.Caller(zone.RPC)
	if err != nil {
		return err
	}
	one, err := caller.Call(ctx, "system.version", claims.Session())
	if err != nil {
		logging.FromContext(ctx).Warn("oned version unavailable", zap.Error(err))
		return err
	}
	out["opennebula"] = one

	return ok(c, out)
}

// listZones returns the configured zones.
func (s *Server) listZones(c echo.Context) error {
	return ok(c, s.zones.Configured())
}
