package smartsheet

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sheet-relay/core"
)

func statusError(operation string, statusCode int, body []byte) error {
	category := goerrors.CategoryExternal
	textCode := core.RelayErrorUnexpectedStatus
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		category = goerrors.CategoryAuth
		textCode = core.RelayErrorUnauthorized
	case http.StatusNotFound:
		category = goerrors.CategoryNotFound
		textCode = core.RelayErrorNotFound
	}
	return goerrors.New(
		fmt.Sprintf("providers/smartsheet: %s returned unexpected status %d", operation, statusCode),
		category,
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(textCode).
		WithMetadata(map[string]any{
			"operation":   operation,
			"status_code": statusCode,
			"body":        truncateBody(body),
		})
}

func decodeError(operation string, source error) error {
	return goerrors.Wrap(
		source,
		goerrors.CategoryExternal,
		fmt.Sprintf("providers/smartsheet: %s", operation),
	).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.RelayErrorUnexpectedStatus)
}

func inputError(message string) error {
	return goerrors.New("providers/smartsheet: "+message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.RelayErrorBadInput)
}

func internalError(message string) error {
	return goerrors.New("providers/smartsheet: "+message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.RelayErrorInternal)
}

func truncateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		return text[:512]
	}
	return text
}
