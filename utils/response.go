package utils

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondError writes a uniform JSON error and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// RespondServiceError maps a service error to a status code. notFound and
// invalid are the sentinel errors of the calling domain.
func RespondServiceError(c *gin.Context, err error, notFound, invalid error) {
	switch {
	case notFound != nil && errors.Is(err, notFound):
		RespondError(c, http.StatusNotFound, "not_found", err.Error())
	case invalid != nil && errors.Is(err, invalid):
		RespondError(c, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		_ = c.Error(err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// ParamUUID parses a path parameter as a UUID, writing a 400 when it is malformed.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// QueryInt reads an optional integer query parameter.
func QueryInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "invalid '"+name+"' query parameter, must be an integer")
		return nil, false
	}
	return &v, true
}
