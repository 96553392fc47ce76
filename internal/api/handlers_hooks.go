package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/hooks"
)

// handleHooks upgrades to a WebSocket relaying hook events for one resource.
// Query: token, resource, id (optional), zone (optional).
func (s *Server) handleHooks(c echo.Context) error {
	claims, _ := auth.GetClaims(c)

	topic, err := hooks.Topic(c.QueryParam("resource"), c.QueryParam("id"))
	if err != nil {
		return err
	}

	zoneID := c.QueryParam("zone")
	if zoneID == "" {
		zoneID = claims.Zone
	}
	zone, err := s.zones.Resolve(c.Request().Context(), claims.Session(), zoneID)
	if err != nil {
		return err
	}
	if zone.ZeroMQ == "" {
		return NewAPIError(http.StatusBadGateway, getHTTPMessage(http.StatusBadGateway),
			"zone "+zone.ID+" has no zeromq endpoint")
	}

	err = s.relay.Serve(c.Response(), c.Request(), hooks.Target{
		User:     claims.User,
		Zone:     zone.ID,
		Endpoint: zone.ZeroMQ,
		Topic:    topic,
	})
	if err != nil {
		var upErr *hooks.UpgradeError
		if errors.As(err, &upErr) {
			return nil
		}
		if errors.Is(err, hooks.ErrRelayClosed) {
			return NewAPIError(http.StatusServiceUnavailable, getHTTPMessage(http.StatusServiceUnavailable), err.Error())
		}
		return NewAPIError(http.StatusBadGateway, getHTTPMessage(http.StatusBadGateway), err.Error())
	}
	return nil
}

// hookStats returns the live relay sessions.
func (s *Server) hookStats(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"enabled":  s.config.Hooks.Enabled,
		"sessions": s.relay.Registry().Count(),
		"active":   page(c, s.relay.Registry().List()),
	})
}
