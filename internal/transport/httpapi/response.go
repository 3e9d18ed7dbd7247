// Package httpapi — REST-интерфейс движка XP и стриков (gin).
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

var errUnavailable = errors.New("сервис временно недоступен, повторите запрос")

// respondServiceError переводит доменные ошибки в HTTP-статусы.
// Всё неизвестное — сбой хранилища: 503, клиент может повторить.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrUserNotFound):
		RespondError(c, http.StatusNotFound, "user_not_found", err)
	case errors.Is(err, common.ErrQuestionNotFound):
		RespondError(c, http.StatusNotFound, "question_not_found", err)
	case errors.Is(err, common.ErrWrongPassword):
		RespondError(c, http.StatusUnauthorized, "wrong_password", err)
	case errors.Is(err, common.ErrTooManyAttempts):
		RespondError(c, http.StatusTooManyRequests, "too_many_attempts", err)
	case errors.Is(err, common.ErrAdminDisabled):
		RespondError(c, http.StatusForbidden, "admin_disabled", err)
	default:
		log.WithError(err).WithField("path", c.FullPath()).Error("Ошибка обработки запроса")
		RespondError(c, http.StatusServiceUnavailable, "unavailable", errUnavailable)
	}
}
