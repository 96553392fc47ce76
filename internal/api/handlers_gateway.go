package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/command"
	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/opennebula"
)

// handleCommand serves /api/<resource>/<action>[/<params>...] by resolving the
// route to a catalog command and calling the matching oned method.
func (s *Server) handleCommand(c echo.Context) error {
	claims, found := auth.GetClaims(c)
	if !found {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	segments := []string{c.Param("action")}
	if rest := strings.Trim(c.Param("*"), "/"); rest != "" {
		segments = append(segments, strings.Split(rest, "/")...)
	}

	cmd, params, err := s.catalog.LookupRoute(c.Param("resource"), segments)
	if err != nil {
		return err
	}

	if c.Request().Method != cmd.Method {
		return MethodNotAllowedError(c.Request().Method, cmd.Method)
	}

	body, err := readBody(c.Request())
	if err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	args, err := cmd.Resolve(params, c.QueryParams(), body)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	zoneID := c.QueryParam("zone")
	if zoneID == "" {
		zoneID = claims.Zone
	}
	zone, err := s.zones.Resolve(ctx, claims.Session(), zoneID)
	if err != nil {
		return err
	}
	caller, err := s.connector.Caller(zone.RPC)
	if err != nil {
		return err
	}

	logger := logging.With(ctx,
		zap.String(logging.FieldCommand, cmd.Name),
		zap.String(logging.FieldZone, zone.ID),
	)

	result, err := caller.Call(ctx, cmd.RPCMethod(), append([]any{claims.Session()}, args...)...)
	if err != nil {
		logger.Debug("command failed", zap.Error(err))
		return err
	}

	data, err := opennebula.DecodeResult(result)
	if err != nil {
		logger.Warn("undecodable oned response", zap.Error(err))
		return InternalError("Failed to decode oned response", err.Error())
	}

	return ok(c, data)
}

// readBody decodes an optional JSON object body. Numbers are kept as
// json.Number so integer parameters keep their precision.
func readBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

// commandInfo describes a command for GET /api/commands.
type commandInfo struct {
	command.Command
	Path string `json:"path"`
}

// listCommands returns the catalog so clients can build requests from it.
// Query: resource (optional), limit, offset.
func (s *Server) listCommands(c echo.Context) error {
	resource := c.QueryParam("resource")

	all := s.catalog.All()
	out := make([]commandInfo, 0, len(all))
	for _, cmd := range all {
		if resource != "" && cmd.Resource() != resource {
			continue
		}
		out = append(out, commandInfo{Command: cmd, Path: "/api" + cmd.Path()})
	}
	return ok(c, page(c, out))
}
