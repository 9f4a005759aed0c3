package inbound

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-sheet-relay/core"
	"github.com/google/uuid"
)

// Decoder turns a raw callback delivery into a callback envelope. The
// sheet provider owns the wire format; the dispatcher only sees the
// decoded shape.
type Decoder func(req core.InboundRequest) (core.CallbackEnvelope, error)

// HandshakeResponder renders the verification echo body for a handshake
// challenge.
type HandshakeResponder func(challenge string) ([]byte, error)

// Dispatcher accepts callback deliveries for one sheet. Handshakes are
// echoed, malformed payloads rejected, foreign sheets ignored, and change
// batches deduped by nonce. Row handling runs after the acknowledgement:
// the platform gets its 200 as soon as the batch is claimed, never behind
// outbound row calls.
type Dispatcher struct {
	SheetID   string
	Store     core.IdempotencyClaimStore
	Handler   core.RowHandler
	Logger    core.Logger
	Decode    Decoder
	Handshake HandshakeResponder
	KeyTTL    time.Duration
}

func NewDispatcher(sheetID string, handler core.RowHandler, decode Decoder) *Dispatcher {
	return &Dispatcher{
		SheetID: strings.TrimSpace(sheetID),
		Store:   NewInMemoryClaimStore(),
		Handler: handler,
		Logger:  glog.Nop(),
		Decode:  decode,
		KeyTTL:  10 * time.Minute,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if d == nil {
		return core.InboundResult{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	if d.Decode == nil {
		return core.InboundResult{}, inboundInternal("inbound: decoder is required", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	envelope, err := d.Decode(req)
	if err != nil {
		return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusBadRequest,
			}, inboundWrapError(
				err,
				goerrors.CategoryBadInput,
				"inbound: decode callback payload",
				http.StatusBadRequest,
				core.RelayErrorBadInput,
				nil,
			)
	}

	if strings.TrimSpace(envelope.Challenge) != "" {
		return d.answerHandshake(envelope.Challenge)
	}

	if envelope.Scope != core.SubscriptionScopeSheet || len(envelope.Events) == 0 {
		return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusBadRequest,
				Metadata:   map[string]any{"scope": envelope.Scope, "events": len(envelope.Events)},
			}, inboundBadInput(
				"inbound: callback payload has an unexpected shape",
				map[string]any{"scope": envelope.Scope, "events": len(envelope.Events)},
			)
	}

	if scope := strings.TrimSpace(envelope.ScopeObjectID); scope != "" && scope != d.SheetID {
		d.logWarn("ignoring callback for another sheet", map[string]any{
			"scope_object_id": scope,
			"sheet_id":        d.SheetID,
		})
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata:   map[string]any{"ignored": true, "scope_object_id": scope},
		}, nil
	}

	claimID := ""
	if d.Store != nil && strings.TrimSpace(envelope.Nonce) != "" {
		var accepted bool
		claimID, accepted, err = d.Store.Claim(ctx, "callback:"+strings.TrimSpace(envelope.Nonce), d.keyTTL())
		if err != nil {
			return core.InboundResult{}, inboundWrapError(
				err,
				goerrors.CategoryOperation,
				"inbound: claim callback nonce",
				http.StatusInternalServerError,
				core.RelayErrorOperationFailed,
				map[string]any{"nonce": envelope.Nonce},
			)
		}
		if !accepted {
			return core.InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Metadata:   map[string]any{"deduped": true, "nonce": envelope.Nonce},
			}, nil
		}
	}

	// Ack first, process after. Row fetches and sends can take seconds;
	// holding the callback response that long reads as a failed delivery
	// on the platform side. WithoutCancel keeps the batch alive once the
	// HTTP response closes the request context.
	go d.processBatch(context.WithoutCancel(ctx), claimID, envelope)

	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"events": len(envelope.Events),
		},
	}, nil
}

func (d *Dispatcher) processBatch(ctx context.Context, claimID string, envelope core.CallbackEnvelope) {
	processed, failed := d.handleEvents(ctx, envelope)

	// The batch stays acknowledged even when rows fail: redelivery would
	// double-post the rows that did go through.
	if d.Store != nil && claimID != "" {
		if err := d.Store.Complete(ctx, claimID); err != nil {
			d.logWarn("completing callback claim failed", map[string]any{
				"claim_id": claimID,
				"error":    err.Error(),
			})
		}
	}
	if failed > 0 {
		d.logWarn("callback batch finished with failures", map[string]any{
			"nonce":          envelope.Nonce,
			"rows_processed": processed,
			"rows_failed":    failed,
		})
	}
}

func (d *Dispatcher) answerHandshake(challenge string) (core.InboundResult, error) {
	challenge = strings.TrimSpace(challenge)
	body := []byte(challenge)
	if d.Handshake != nil {
		rendered, err := d.Handshake(challenge)
		if err != nil {
			return core.InboundResult{}, inboundWrapError(
				err,
				goerrors.CategoryInternal,
				"inbound: render handshake response",
				http.StatusInternalServerError,
				core.RelayErrorInternal,
				nil,
			)
		}
		body = rendered
	}
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Body:       body,
		Metadata:   map[string]any{"handshake": true},
	}, nil
}

func (d *Dispatcher) handleEvents(ctx context.Context, envelope core.CallbackEnvelope) (processed int, failed int) {
	for _, event := range envelope.Events {
		if !event.IsRowCreated() {
			continue
		}
		if strings.TrimSpace(event.ScopeObjectID) == "" {
			event.ScopeObjectID = envelope.ScopeObjectID
		}
		if d.Handler == nil {
			d.logWarn("no row handler configured, dropping event", map[string]any{
				"row_id": event.RowID,
			})
			failed++
			continue
		}
		if err := d.Handler.HandleRowCreated(ctx, event); err != nil {
			d.logWarn("row processing failed, dropping event", map[string]any{
				"row_id": event.RowID,
				"error":  err.Error(),
			})
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}

func (d *Dispatcher) keyTTL() time.Duration {
	if d != nil && d.KeyTTL > 0 {
		return d.KeyTTL
	}
	return 10 * time.Minute
}

func (d *Dispatcher) logWarn(message string, fields map[string]any) {
	if d == nil || d.Logger == nil {
		return
	}
	logger := d.Logger
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	logger.Warn(message, args...)
}

type claimStatus string

const (
	claimStatusProcessing claimStatus = "processing"
	claimStatusRetryReady claimStatus = "retry_ready"
	claimStatusComplete   claimStatus = "complete"
)

type claimEntry struct {
	Key            string
	Status         claimStatus
	ClaimID        string
	Attempts       int
	KeyTTL         time.Duration
	LeaseExpiresAt time.Time
	RetryAt        time.Time
}

// InMemoryClaimStore keeps nonce claims in process memory. Enough for a
// single relay instance; completed keys age out after their TTL.
type InMemoryClaimStore struct {
	mu      sync.Mutex
	entries map[string]claimEntry
	claims  map[string]string
	Now     func() time.Time
}

func NewInMemoryClaimStore() *InMemoryClaimStore {
	return &InMemoryClaimStore{
		entries: map[string]claimEntry{},
		claims:  map[string]string{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *InMemoryClaimStore) Claim(
	_ context.Context,
	key string,
	lease time.Duration,
) (string, bool, error) {
	if s == nil {
		return "", false, inboundInternal("inbound: claim store is nil", nil)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, inboundBadInput("inbound: claim key is required", nil)
	}
	now := s.now()
	if lease <= 0 {
		lease = 10 * time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	entry, exists := s.entries[key]
	if !exists {
		claimID := uuid.NewString()
		s.entries[key] = claimEntry{
			Key:            key,
			Status:         claimStatusProcessing,
			ClaimID:        claimID,
			Attempts:       1,
			KeyTTL:         lease,
			LeaseExpiresAt: now.Add(lease),
		}
		s.claims[claimID] = key
		return claimID, true, nil
	}

	switch entry.Status {
	case claimStatusComplete:
		if !entry.LeaseExpiresAt.IsZero() && now.Before(entry.LeaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusProcessing:
		if now.Before(entry.LeaseExpiresAt) {
			return "", false, nil
		}
	case claimStatusRetryReady:
		if !entry.RetryAt.IsZero() && now.Before(entry.RetryAt) {
			return "", false, nil
		}
	}

	if entry.ClaimID != "" {
		delete(s.claims, entry.ClaimID)
	}
	claimID := uuid.NewString()
	entry.Status = claimStatusProcessing
	entry.ClaimID = claimID
	entry.Attempts++
	entry.KeyTTL = lease
	entry.LeaseExpiresAt = now.Add(lease)
	entry.RetryAt = time.Time{}
	s.entries[key] = entry
	s.claims[claimID] = key
	return claimID, true, nil
}

func (s *InMemoryClaimStore) Complete(_ context.Context, claimID string) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.ClaimID != claimID || entry.Status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	ttl := entry.KeyTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	entry.Status = claimStatusComplete
	entry.LeaseExpiresAt = s.now().Add(ttl)
	entry.RetryAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *InMemoryClaimStore) Fail(
	_ context.Context,
	claimID string,
	_ error,
	retryAt time.Time,
) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	claimID = strings.TrimSpace(claimID)
	if claimID == "" {
		return inboundBadInput("inbound: claim id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.claims[claimID]
	if !ok {
		return nil
	}
	entry, exists := s.entries[key]
	if !exists || entry.ClaimID != claimID || entry.Status != claimStatusProcessing {
		delete(s.claims, claimID)
		return nil
	}
	if retryAt.IsZero() {
		retryAt = s.now()
	}
	entry.Status = claimStatusRetryReady
	entry.RetryAt = retryAt.UTC()
	entry.LeaseExpiresAt = time.Time{}
	s.entries[key] = entry
	delete(s.claims, claimID)
	return nil
}

func (s *InMemoryClaimStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *InMemoryClaimStore) evictExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.Status != claimStatusComplete {
			continue
		}
		if entry.LeaseExpiresAt.IsZero() || !now.Before(entry.LeaseExpiresAt) {
			if entry.ClaimID != "" {
				delete(s.claims, entry.ClaimID)
			}
			delete(s.entries, key)
		}
	}
}

var _ core.IdempotencyClaimStore = (*InMemoryClaimStore)(nil)
