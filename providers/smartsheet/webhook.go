package smartsheet

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-sheet-relay/core"
)

// ChallengeHeader carries the verification challenge on handshake
// deliveries. The platform expects the value echoed back in the response
// body.
const ChallengeHeader = "Smartsheet-Hook-Challenge"

type callbackPayload struct {
	Challenge     string          `json:"challenge"`
	Nonce         string          `json:"nonce"`
	Scope         string          `json:"scope"`
	ScopeObjectID json.Number     `json:"scopeObjectId"`
	Events        []callbackEvent `json:"events"`
}

type callbackEvent struct {
	ObjectType string      `json:"objectType"`
	EventType  string      `json:"eventType"`
	ID         json.Number `json:"id"`
	RowID      json.Number `json:"rowId"`
}

// DecodeCallback turns a raw delivery into a callback envelope. The
// challenge may arrive in the header, the body, or both; the header wins.
func DecodeCallback(req core.InboundRequest) (core.CallbackEnvelope, error) {
	envelope := core.CallbackEnvelope{}

	if challenge := headerValue(req.Headers, ChallengeHeader); challenge != "" {
		envelope.Challenge = challenge
	}
	if len(req.Body) == 0 {
		if envelope.Challenge == "" {
			return core.CallbackEnvelope{}, inputError("callback body is empty")
		}
		return envelope, nil
	}

	var payload callbackPayload
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		if envelope.Challenge != "" {
			return envelope, nil
		}
		return core.CallbackEnvelope{}, inputError("callback body is not valid json")
	}

	if envelope.Challenge == "" {
		envelope.Challenge = strings.TrimSpace(payload.Challenge)
	}
	envelope.Nonce = strings.TrimSpace(payload.Nonce)
	envelope.Scope = strings.TrimSpace(payload.Scope)
	envelope.ScopeObjectID = payload.ScopeObjectID.String()
	for _, event := range payload.Events {
		rowID := event.RowID.String()
		if rowID == "" {
			rowID = event.ID.String()
		}
		envelope.Events = append(envelope.Events, core.ChangeEvent{
			EventType:  strings.TrimSpace(event.EventType),
			ObjectType: strings.TrimSpace(event.ObjectType),
			RowID:      rowID,
		})
	}
	return envelope, nil
}

// ChallengeResponse renders the handshake echo body.
func ChallengeResponse(challenge string) ([]byte, error) {
	return json.Marshal(map[string]string{
		"smartsheetHookResponse": strings.TrimSpace(challenge),
	})
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
