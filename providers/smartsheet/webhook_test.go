package smartsheet

import (
	"testing"

	"github.com/goliatone/go-sheet-relay/core"
)

func TestDecodeCallbackReadsHeaderChallenge(t *testing.T) {
	envelope, err := DecodeCallback(core.InboundRequest{
		Headers: map[string]string{"smartsheet-hook-challenge": "abc-123"},
		Body:    []byte(`{"challenge": "abc-123", "webhookId": 111}`),
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if envelope.Challenge != "abc-123" {
		t.Fatalf("expected challenge abc-123, got %q", envelope.Challenge)
	}
}

func TestDecodeCallbackReadsBodyChallenge(t *testing.T) {
	envelope, err := DecodeCallback(core.InboundRequest{
		Body: []byte(`{"challenge": "xyz-789"}`),
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if envelope.Challenge != "xyz-789" {
		t.Fatalf("expected challenge xyz-789, got %q", envelope.Challenge)
	}
}

func TestDecodeCallbackReadsEventBatch(t *testing.T) {
	envelope, err := DecodeCallback(core.InboundRequest{
		Body: []byte(`{
			"nonce": "n-1",
			"scope": "sheet",
			"scopeObjectId": 1234,
			"events": [
				{"objectType": "row", "eventType": "created", "id": 555},
				{"objectType": "row", "eventType": "updated", "rowId": 556},
				{"objectType": "column", "eventType": "created", "id": 9}
			]
		}`),
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if envelope.Challenge != "" {
		t.Fatalf("expected no challenge, got %q", envelope.Challenge)
	}
	if envelope.Nonce != "n-1" || envelope.Scope != "sheet" || envelope.ScopeObjectID != "1234" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if len(envelope.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(envelope.Events))
	}
	if envelope.Events[0].RowID != "555" {
		t.Fatalf("expected row id from the id field, got %q", envelope.Events[0].RowID)
	}
	if envelope.Events[1].RowID != "556" {
		t.Fatalf("expected row id from the rowId field, got %q", envelope.Events[1].RowID)
	}
	if !envelope.Events[0].IsRowCreated() || envelope.Events[1].IsRowCreated() || envelope.Events[2].IsRowCreated() {
		t.Fatalf("unexpected row-created classification: %+v", envelope.Events)
	}
}

func TestDecodeCallbackRejectsGarbage(t *testing.T) {
	if _, err := DecodeCallback(core.InboundRequest{Body: []byte("{broken")}); err == nil {
		t.Fatal("expected an error for broken json")
	}
	if _, err := DecodeCallback(core.InboundRequest{}); err == nil {
		t.Fatal("expected an error for an empty delivery")
	}
}

func TestChallengeResponseEchoesTheChallenge(t *testing.T) {
	body, err := ChallengeResponse(" abc-123 ")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if string(body) != `{"smartsheetHookResponse":"abc-123"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}
