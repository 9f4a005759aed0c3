package webex

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-sheet-relay/core"
)

type stubTransport struct {
	response core.TransportResponse
	err      error
	requests []core.TransportRequest
}

func (t *stubTransport) Kind() string { return "stub" }

func (t *stubTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	t.requests = append(t.requests, req)
	if t.err != nil {
		return core.TransportResponse{}, t.err
	}
	return t.response, nil
}

func testSender(transport *stubTransport) *Sender {
	return NewSender(transport, core.WebexConfig{
		Token:   "webex-token",
		RoomID:  "room-1",
		BaseURL: "https://chat.example.com/v1",
	}, 3*time.Second)
}

func TestSendMessagePostsMarkdown(t *testing.T) {
	transport := &stubTransport{response: core.TransportResponse{StatusCode: http.StatusOK}}

	err := testSender(transport).SendMessage(context.Background(), "room-1", core.Message{
		Markdown:      "New entry from Ada Lovelace",
		CorrelationID: "corr-1",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	req := transport.requests[0]
	if req.Method != "POST" || req.URL != "https://chat.example.com/v1/messages" {
		t.Fatalf("unexpected request: %s %s", req.Method, req.URL)
	}
	if req.Headers["Authorization"] != "Bearer webex-token" {
		t.Fatal("expected bearer auth header")
	}

	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not json: %v", err)
	}
	if body["roomId"] != "room-1" || body["markdown"] != "New entry from Ada Lovelace" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSendMessageMapsUnexpectedStatuses(t *testing.T) {
	transport := &stubTransport{response: core.TransportResponse{StatusCode: http.StatusUnauthorized}}

	err := testSender(transport).SendMessage(context.Background(), "room-1", core.Message{Markdown: "hi"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.RelayErrorUnauthorized {
		t.Fatalf("expected %q, got %v", core.RelayErrorUnauthorized, err)
	}
}

func TestSendMessageValidatesInputs(t *testing.T) {
	transport := &stubTransport{response: core.TransportResponse{StatusCode: http.StatusOK}}
	sender := testSender(transport)

	if err := sender.SendMessage(context.Background(), "  ", core.Message{Markdown: "hi"}); err == nil {
		t.Fatal("expected an error for a blank destination")
	}
	if err := sender.SendMessage(context.Background(), "room-1", core.Message{}); err == nil {
		t.Fatal("expected an error for an empty message")
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(transport.requests))
	}
}
