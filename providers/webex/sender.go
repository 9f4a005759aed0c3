// Package webex posts rendered relay messages to a Webex Teams room.
package webex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sheet-relay/core"
)

type Sender struct {
	Transport core.TransportAdapter
	BaseURL   string
	Token     string
	Timeout   time.Duration
}

func NewSender(transport core.TransportAdapter, cfg core.WebexConfig, timeout time.Duration) *Sender {
	return &Sender{
		Transport: transport,
		BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		Token:     strings.TrimSpace(cfg.Token),
		Timeout:   timeout,
	}
}

// SendMessage posts a markdown message to the destination room. Delivery is
// best effort; the caller decides whether a failure matters.
func (s *Sender) SendMessage(ctx context.Context, destination string, msg core.Message) error {
	if s == nil || s.Transport == nil {
		return senderError("transport adapter is required", goerrors.CategoryInternal,
			http.StatusInternalServerError, core.RelayErrorInternal)
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return senderError("destination room id is required", goerrors.CategoryBadInput,
			http.StatusBadRequest, core.RelayErrorBadInput)
	}
	if strings.TrimSpace(msg.Markdown) == "" {
		return senderError("message markdown is required", goerrors.CategoryBadInput,
			http.StatusBadRequest, core.RelayErrorBadInput)
	}

	body, err := json.Marshal(map[string]string{
		"roomId":   destination,
		"markdown": msg.Markdown,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "providers/webex: encode message").
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.RelayErrorInternal)
	}

	res, err := s.Transport.Do(ctx, core.TransportRequest{
		Method: "POST",
		URL:    s.BaseURL + "/messages",
		Headers: map[string]string{
			"Authorization": "Bearer " + s.Token,
			"Content-Type":  "application/json",
		},
		Body:    body,
		Timeout: s.Timeout,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "providers/webex: post message").
			WithCode(http.StatusBadGateway).
			WithTextCode(core.RelayErrorCollaboratorUnavailable).
			WithMetadata(map[string]any{"correlation_id": msg.CorrelationID})
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		textCode := core.RelayErrorUnexpectedStatus
		category := goerrors.CategoryExternal
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			textCode = core.RelayErrorUnauthorized
			category = goerrors.CategoryAuth
		}
		return goerrors.New(
			fmt.Sprintf("providers/webex: post message returned unexpected status %d", res.StatusCode),
			category,
		).
			WithCode(http.StatusBadGateway).
			WithTextCode(textCode).
			WithMetadata(map[string]any{
				"status_code":    res.StatusCode,
				"correlation_id": msg.CorrelationID,
			})
	}
	return nil
}

func senderError(message string, category goerrors.Category, code int, textCode string) error {
	return goerrors.New("providers/webex: "+message, category).
		WithCode(code).
		WithTextCode(textCode)
}

var _ core.MessageSender = (*Sender)(nil)
