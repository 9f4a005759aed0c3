package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	RelayErrorBadInput                = "RELAY_BAD_INPUT"
	RelayErrorConfigMissing           = "RELAY_CONFIG_MISSING"
	RelayErrorNotFound                = "RELAY_NOT_FOUND"
	RelayErrorUnauthorized            = "RELAY_UNAUTHORIZED"
	RelayErrorConflict                = "RELAY_CONFLICT"
	RelayErrorCollaboratorUnavailable = "RELAY_COLLABORATOR_UNAVAILABLE"
	RelayErrorUnexpectedStatus        = "RELAY_UNEXPECTED_STATUS"
	RelayErrorOperationFailed         = "RELAY_OPERATION_FAILED"
	RelayErrorInternal                = "RELAY_INTERNAL_ERROR"
)

// Reconciliation failures carry a distinct code per failing step so
// operators can tell a dead list call apart from a half-created
// subscription.
const (
	RelayErrorSubscriptionList       = "RELAY_SUBSCRIPTION_LIST_FAILED"
	RelayErrorSubscriptionCreate     = "RELAY_SUBSCRIPTION_CREATE_FAILED"
	RelayErrorSubscriptionActivate   = "RELAY_SUBSCRIPTION_ACTIVATE_FAILED"
	RelayErrorSubscriptionNotEnabled = "RELAY_SUBSCRIPTION_NOT_ENABLED"
)

func relayErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureRelayErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"),
		strings.Contains(msg, "connection refused"):
		return newRelayError(err.Error(), goerrors.CategoryExternal, RelayErrorCollaboratorUnavailable)
	case strings.Contains(msg, "unexpected status"):
		return newRelayError(err.Error(), goerrors.CategoryExternal, RelayErrorUnexpectedStatus)
	case strings.Contains(msg, "not found"):
		return newRelayError(err.Error(), goerrors.CategoryNotFound, RelayErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "mismatch"):
		return newRelayError(err.Error(), goerrors.CategoryBadInput, RelayErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureRelayErrorEnvelope(mapped)
}

func newRelayError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureRelayErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureRelayErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = relayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultRelayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultRelayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return RelayErrorBadInput
	case goerrors.CategoryNotFound:
		return RelayErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return RelayErrorUnauthorized
	case goerrors.CategoryConflict:
		return RelayErrorConflict
	case goerrors.CategoryExternal:
		return RelayErrorCollaboratorUnavailable
	case goerrors.CategoryOperation:
		return RelayErrorOperationFailed
	default:
		return RelayErrorInternal
	}
}

func relayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
