package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/repository"
	"github.com/stemsi/eduadmin-backend/internal/response"
	"github.com/stemsi/eduadmin-backend/internal/service"
)

var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrNotSessionOwner, http.StatusForbidden, response.ErrNotSessionOwner},
	{service.ErrSessionNotActive, http.StatusConflict, response.ErrSessionNotActive},
	{service.ErrActiveSessionExists, http.StatusConflict, response.ErrActiveSessionExists},
	{service.ErrInvalidPin, http.StatusBadRequest, response.ErrInvalidPin},
	{service.ErrEnrollmentNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrRoomNotFound, http.StatusNotFound, response.ErrRoomNotFound},
	{service.ErrReferenceNotFound, http.StatusUnprocessableEntity, response.ErrReferenceNotFound},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{repository.ErrDuplicate, http.StatusConflict, response.ErrConflict},
	{repository.ErrReferenceNotFound, http.StatusUnprocessableEntity, response.ErrReferenceNotFound},
	{repository.ErrInUse, http.StatusConflict, response.ErrDependencyExists},
}

// failService writes the error response for err. Unknown errors are logged and reported as 500.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	if errors.Is(err, service.ErrValidation) {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"detail": service.ValidationMessage(err),
		})
		return
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			response.Fail(c, m.status, m.code)
			return
		}
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter.
func queryInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			name: "must be a positive integer",
		})
		return nil, false
	}
	return &v, true
}
