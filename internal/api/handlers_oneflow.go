package api

import (
	"encoding/json"
	"strconv"

	"github.com/labstack/echo/v4"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/oneflow"
)

func flowCredentials(c echo.Context) oneflow.Credentials {
	claims, _ := auth.GetClaims(c)
	return oneflow.Credentials{User: claims.User, Token: claims.OneToken}
}

// idParam reads :id, already checked by ValidateNumericID.
func idParam(c echo.Context) int {
	id, _ := strconv.Atoi(c.Param("id"))
	return id
}

func bindAction(c echo.Context) (oneflow.Action, error) {
	var body struct {
		Action oneflow.Action `json:"action" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return oneflow.Action{}, BadRequestError("Invalid request body", err.Error())
	}
	if err := c.Validate(&body); err != nil {
		return oneflow.Action{}, err
	}
	return body.Action, nil
}

func flowResult(c echo.Context, raw json.RawMessage, err error) error {
	if err != nil {
		return err
	}
	return ok(c, raw)
}

func (s *Server) listServices(c echo.Context) error {
	raw, err := s.flow.ListServices(c.Request().Context(), flowCredentials(c))
	return flowResult(c, raw, err)
}

func (s *Server) getService(c echo.Context) error {
	raw, err := s.flow.GetService(c.Request().Context(), flowCredentials(c), idParam(c))
	return flowResult(c, raw, err)
}

func (s *Server) serviceAction(c echo.Context) error {
	action, err := bindAction(c)
	if err != nil {
		return err
	}
	raw, err := s.flow.ServiceAction(c.Request().Context(), flowCredentials(c), idParam(c), action)
	return flowResult(c, raw, err)
}

func (s *Server) deleteService(c echo.Context) error {
	raw, err := s.flow.DeleteService(c.Request().Context(), flowCredentials(c), idParam(c))
	return flowResult(c, raw, err)
}

func (s *Server) listServiceTemplates(c echo.Context) error {
	raw, err := s.flow.ListTemplates(c.Request().Context(), flowCredentials(c))
	return flowResult(c, raw, err)
}

func (s *Server) getServiceTemplate(c echo.Context) error {
	raw, err := s.flow.GetTemplate(c.Request().Context(), flowCredentials(c), idParam(c))
	return flowResult(c, raw, err)
}

func (s *Server) serviceTemplateAction(c echo.Context) error {
	action, err := bindAction(c)
	if err != nil {
		return err
	}
	raw, err := s.flow.TemplateAction(c.Request().Context(), flowCredentials(c), idParam(c), action)
	return flowResult(c, raw, err)
}
