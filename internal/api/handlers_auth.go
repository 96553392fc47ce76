package api

import (
	"github.com/labstack/echo/v4"

	"evalgo.org/fireedge/internal/auth"
)

// login exchanges oned credentials for a session token.
func (s *Server) login(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := s.authn.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return ok(c, res)
}
