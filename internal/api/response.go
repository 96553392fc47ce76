package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope every successful gateway call is wrapped in.
type Response struct {
	ID      int         `json:"id"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		ID:      http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    data,
	})
}
