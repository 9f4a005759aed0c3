package core

import (
	"context"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type stubSubscriptionClient struct {
	subscriptions []Subscription
	listErr       error
	createErr     error
	activateErr   error

	listCalls int
	created   []CreateSubscriptionInput
	activated []string
}

func (c *stubSubscriptionClient) ListSubscriptions(context.Context) ([]Subscription, error) {
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := make([]Subscription, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out, nil
}

func (c *stubSubscriptionClient) CreateSubscription(_ context.Context, input CreateSubscriptionInput) (Subscription, error) {
	if c.createErr != nil {
		return Subscription{}, c.createErr
	}
	c.created = append(c.created, input)
	subscription := Subscription{
		ID:            fmt.Sprintf("sub-%d", len(c.created)),
		Name:          input.Name,
		Scope:         input.Scope,
		ScopeObjectID: input.ScopeObjectID,
		CallbackURL:   input.CallbackURL,
		Status:        SubscriptionStatusDisabled,
		Events:        input.Events,
		Version:       input.Version,
	}
	c.subscriptions = append(c.subscriptions, subscription)
	return subscription, nil
}

func (c *stubSubscriptionClient) SetSubscriptionEnabled(_ context.Context, id string, enabled bool) (Subscription, error) {
	if c.activateErr != nil {
		return Subscription{}, c.activateErr
	}
	c.activated = append(c.activated, id)
	for i, subscription := range c.subscriptions {
		if subscription.ID != id {
			continue
		}
		if enabled {
			c.subscriptions[i].Status = SubscriptionStatusEnabled
		} else {
			c.subscriptions[i].Status = SubscriptionStatusDisabled
		}
		return c.subscriptions[i], nil
	}
	return Subscription{}, fmt.Errorf("subscription %s not found", id)
}

func testReconciler(client SubscriptionClient) *Reconciler {
	cfg := DefaultConfig()
	cfg.Smartsheet.SheetID = "sheet-1"
	return NewReconciler(client, cfg, nil)
}

func existingSubscription(id string, status SubscriptionStatus, callbackURL string) Subscription {
	return Subscription{
		ID:            id,
		Name:          RegistrationName,
		Scope:         SubscriptionScopeSheet,
		ScopeObjectID: "sheet-1",
		CallbackURL:   callbackURL,
		Status:        status,
		Events:        WildcardEvents(),
		Version:       SubscriptionVersion,
	}
}

func relayTextCode(t *testing.T, err error) string {
	t.Helper()
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected a mapped error, got %T: %v", err, err)
	}
	return richErr.TextCode
}

func TestReconcileLeavesActiveSubscriptionAlone(t *testing.T) {
	client := &stubSubscriptionClient{
		subscriptions: []Subscription{
			existingSubscription("sub-1", SubscriptionStatusEnabled, "https://relay.example.com/"),
		},
	}

	result, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyActive {
		t.Fatalf("expected already_active, got %q", result.Outcome)
	}
	if result.Subscription.ID != "sub-1" {
		t.Fatalf("expected sub-1 as authoritative, got %q", result.Subscription.ID)
	}
	if len(client.created) != 0 || len(client.activated) != 0 {
		t.Fatalf("expected no writes, got %d creates %d activations", len(client.created), len(client.activated))
	}
}

func TestReconcileCreatesAndActivatesWhenAbsent(t *testing.T) {
	client := &stubSubscriptionClient{}

	result, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %q", result.Outcome)
	}
	if result.Subscription.Status != SubscriptionStatusEnabled {
		t.Fatalf("expected the new subscription enabled, got %q", result.Subscription.Status)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected one create, got %d", len(client.created))
	}

	input := client.created[0]
	if input.Scope != SubscriptionScopeSheet {
		t.Fatalf("expected sheet scope, got %q", input.Scope)
	}
	if input.ScopeObjectID != "sheet-1" {
		t.Fatalf("expected sheet-1 scope object, got %q", input.ScopeObjectID)
	}
	if input.Name != RegistrationName {
		t.Fatalf("expected registration name %q, got %q", RegistrationName, input.Name)
	}
	if input.Version != SubscriptionVersion {
		t.Fatalf("expected version %q, got %q", SubscriptionVersion, input.Version)
	}
	if len(input.Events) != 1 || input.Events[0] != "*.*" {
		t.Fatalf("expected wildcard events, got %v", input.Events)
	}
	if len(client.activated) != 1 || client.activated[0] != result.Subscription.ID {
		t.Fatalf("expected one activation of %q, got %v", result.Subscription.ID, client.activated)
	}
}

func TestReconcileFailsOnDisabledSubscription(t *testing.T) {
	client := &stubSubscriptionClient{
		subscriptions: []Subscription{
			existingSubscription("sub-1", SubscriptionStatusDisabled, "https://relay.example.com/"),
		},
	}

	result, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
	if err == nil {
		t.Fatal("expected a fatal mismatch error")
	}
	if result.Outcome != OutcomeFatalMismatch {
		t.Fatalf("expected fatal_mismatch, got %q", result.Outcome)
	}
	if code := relayTextCode(t, err); code != RelayErrorSubscriptionNotEnabled {
		t.Fatalf("expected %q, got %q", RelayErrorSubscriptionNotEnabled, code)
	}
	if len(client.created) != 0 || len(client.activated) != 0 {
		t.Fatal("expected no writes on a fatal mismatch")
	}
}

func TestReconcileTreatsStaleCallbackAsAbsent(t *testing.T) {
	client := &stubSubscriptionClient{
		subscriptions: []Subscription{
			existingSubscription("sub-old", SubscriptionStatusEnabled, "https://old.example.com/"),
		},
	}

	result, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %q", result.Outcome)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected one create, got %d", len(client.created))
	}
}

func TestReconcileFirstDuplicateIsAuthoritative(t *testing.T) {
	client := &stubSubscriptionClient{
		subscriptions: []Subscription{
			existingSubscription("sub-1", SubscriptionStatusEnabled, "https://relay.example.com/"),
			existingSubscription("sub-2", SubscriptionStatusDisabled, "https://relay.example.com/"),
		},
	}

	result, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadyActive || result.Subscription.ID != "sub-1" {
		t.Fatalf("expected sub-1 already_active, got %q %q", result.Outcome, result.Subscription.ID)
	}
}

func TestReconcileIsIdempotentAcrossRestarts(t *testing.T) {
	client := &stubSubscriptionClient{}
	reconciler := testReconciler(client)

	first, err := reconciler.Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}
	if first.Outcome != OutcomeCreated {
		t.Fatalf("expected created on first run, got %q", first.Outcome)
	}

	second, err := reconciler.Reconcile(context.Background(), "https://relay.example.com/")
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}
	if second.Outcome != OutcomeAlreadyActive {
		t.Fatalf("expected already_active on second run, got %q", second.Outcome)
	}
	if len(client.created) != 1 {
		t.Fatalf("expected exactly one create across runs, got %d", len(client.created))
	}
}

func TestReconcileReportsStepSpecificFailures(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		client := &stubSubscriptionClient{listErr: fmt.Errorf("boom")}
		_, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
		if code := relayTextCode(t, err); code != RelayErrorSubscriptionList {
			t.Fatalf("expected %q, got %q", RelayErrorSubscriptionList, code)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		client := &stubSubscriptionClient{createErr: fmt.Errorf("boom")}
		_, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
		if code := relayTextCode(t, err); code != RelayErrorSubscriptionCreate {
			t.Fatalf("expected %q, got %q", RelayErrorSubscriptionCreate, code)
		}
	})

	t.Run("activate failure", func(t *testing.T) {
		client := &stubSubscriptionClient{activateErr: fmt.Errorf("boom")}
		_, err := testReconciler(client).Reconcile(context.Background(), "https://relay.example.com/")
		if code := relayTextCode(t, err); code != RelayErrorSubscriptionActivate {
			t.Fatalf("expected %q, got %q", RelayErrorSubscriptionActivate, code)
		}
	})
}

func TestReconcileValidatesItsInputs(t *testing.T) {
	client := &stubSubscriptionClient{}

	_, err := testReconciler(client).Reconcile(context.Background(), "   ")
	if code := relayTextCode(t, err); code != RelayErrorBadInput {
		t.Fatalf("expected %q, got %q", RelayErrorBadInput, code)
	}
	if client.listCalls != 0 {
		t.Fatal("expected no remote calls for an empty callback url")
	}

	reconciler := testReconciler(client)
	reconciler.SheetID = ""
	_, err = reconciler.Reconcile(context.Background(), "https://relay.example.com/")
	if code := relayTextCode(t, err); code != RelayErrorBadInput {
		t.Fatalf("expected %q, got %q", RelayErrorBadInput, code)
	}
}
