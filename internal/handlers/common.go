// internal/handlers/common.go

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/types"
)

// Response is the uniform JSON envelope every endpoint returns, matching the
// teacher's handlers.Response shape.
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"err,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "ok", Data: data})
}

// fail classifies a domain error via errors.Is against the sentinel
// taxonomy and picks the matching HTTP status, the way the teacher's
// handlers translate repository errors into a Response.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrStorageFailure):
		status = http.StatusInternalServerError
	}
	c.JSON(status, Response{Code: status, Msg: "error", Err: err.Error()})
}
