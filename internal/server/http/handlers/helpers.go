package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/domain/errors"
	"github.com/LayerTwo-Labs/fast-withdraw-server-node/internal/server/http/dto"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrAmountExceedsLimit),
		errors.Is(err, domainErrors.ErrInvalidDestination):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrDuplicateRequest), errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrAdapterUnavailable), errors.Is(err, domainErrors.ErrConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, domainErrors.ErrAdapterError), errors.Is(err, domainErrors.ErrAuth), errors.Is(err, domainErrors.ErrLedger):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error, data any) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Something went wrong!"
		_ = c.Error(err)
	}
	body := dto.Error(domainErrors.KindOf(err), message)
	body.Data = data
	c.JSON(status, body)
}

func writeSuccess(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.Success(message, data))
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched so missing fields are
// reported by the use case; a field of the wrong JSON type yields typeMessage.
func bindJSON(c *gin.Context, dst any, typeMessage string) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return domainErrors.New(domainErrors.ErrValidation, "%s", typeMessage)
	}
	return domainErrors.Wrap(domainErrors.ErrValidation, err, "Malformed JSON body")
}
