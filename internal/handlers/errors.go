package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError переводит классы ошибок сервиса в HTTP-статусы.
func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		log.Warn(op+": validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), []dto.FieldError{}))
	case errors.Is(err, service.ErrNotFound):
		log.Warn(op+": not found", zap.Error(err))
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		log.Warn(op+": forbidden", zap.Error(err))
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(err.Error()))
	case errors.Is(err, service.ErrInvalidState):
		log.Warn(op+": conflict", zap.Error(err))
		c.JSON(http.StatusConflict, dto.NewConflictError(err.Error()))
	case errors.Is(err, service.ErrNoPickableItems):
		log.Info(op+": nothing to pick", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, dto.NewUnprocessableError(err.Error()))
	default:
		log.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func badBody(c *gin.Context, log *zap.Logger, op string, err error) {
	log.Warn(op+": invalid request body", zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", []dto.FieldError{}))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid id", []dto.FieldError{
			{Field: name, Message: "must be a uuid", Tag: "uuid"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID: пустой параметр: nil без ошибки.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameter", []dto.FieldError{
			{Field: name, Message: "must be a uuid", Tag: "uuid"},
		}))
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameter", []dto.FieldError{
			{Field: name, Message: "must be an integer", Tag: "numeric"},
		}))
		return 0, false
	}
	return v, true
}

func queryTime(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid query parameter", []dto.FieldError{
			{Field: name, Message: "must be RFC3339", Tag: "datetime"},
		}))
		return nil, false
	}
	return &t, true
}
