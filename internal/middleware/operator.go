package middleware

import (
	"net/http"
	"strings"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderUserID = "X-User-ID"
	CtxUserID    = "user_id"
)

// Operator читает идентификатор оператора склада из X-User-ID (его проставляет gateway)
// и кладёт его и в gin-контекст, и в context запроса. Отсутствие заголовка не ошибка.
func Operator(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := uuid.Parse(strings.Trim(raw, "\""))
		if err != nil {
			log.Warn("invalid operator header", zap.String("value", raw))
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("invalid X-User-ID header", []dto.FieldError{
				{Field: HeaderUserID, Message: "must be a uuid", Tag: "uuid"},
			}))
			return
		}
		c.Set(CtxUserID, id)
		c.Request = c.Request.WithContext(service.WithUserID(c.Request.Context(), id))
		c.Next()
	}
}

// RequireOperator: для эндпоинтов, где действие выполняет конкретный сотрудник.
func RequireOperator() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(CtxUserID); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing X-User-ID header"))
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
