package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sheet-relay/core"
)

type stubMutatingService struct {
	reconcileFn  func(ctx context.Context, callbackURL string) (core.ReconcileResult, error)
	processRowFn func(ctx context.Context, event core.ChangeEvent) error
}

func (s stubMutatingService) Reconcile(ctx context.Context, callbackURL string) (core.ReconcileResult, error) {
	if s.reconcileFn == nil {
		return core.ReconcileResult{}, nil
	}
	return s.reconcileFn(ctx, callbackURL)
}

func (s stubMutatingService) ProcessRowCreated(ctx context.Context, event core.ChangeEvent) error {
	if s.processRowFn == nil {
		return nil
	}
	return s.processRowFn(ctx, event)
}

func TestReconcileWebhookCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.ReconcileResult{
		Outcome:      core.OutcomeCreated,
		Subscription: core.Subscription{ID: "sub-1"},
	}
	called := false

	svc := stubMutatingService{
		reconcileFn: func(_ context.Context, callbackURL string) (core.ReconcileResult, error) {
			called = true
			if callbackURL != "https://relay.example.com/" {
				t.Fatalf("unexpected callback url %q", callbackURL)
			}
			return expected, nil
		},
	}

	cmd := NewReconcileWebhookCommand(svc)
	collector := gocmd.NewResult[core.ReconcileResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ReconcileWebhookMessage{CallbackURL: "https://relay.example.com/"}); err != nil {
		t.Fatalf("execute reconcile: %v", err)
	}
	if !called {
		t.Fatal("expected reconcile invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatal("expected result to be stored")
	}
	if result.Outcome != expected.Outcome || result.Subscription.ID != expected.Subscription.ID {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestReconcileWebhookCommand_PropagatesErrors(t *testing.T) {
	svc := stubMutatingService{
		reconcileFn: func(context.Context, string) (core.ReconcileResult, error) {
			return core.ReconcileResult{}, fmt.Errorf("list failed")
		},
	}
	err := NewReconcileWebhookCommand(svc).Execute(context.Background(), ReconcileWebhookMessage{
		CallbackURL: "https://relay.example.com/",
	})
	if err == nil {
		t.Fatal("expected the service error propagated")
	}
}

func TestProcessRowCommand_DelegatesToService(t *testing.T) {
	called := false
	svc := stubMutatingService{
		processRowFn: func(_ context.Context, event core.ChangeEvent) error {
			called = true
			if event.RowID != "row-1" {
				t.Fatalf("unexpected row id %q", event.RowID)
			}
			return nil
		},
	}

	err := NewProcessRowCommand(svc).Execute(context.Background(), ProcessRowMessage{
		Event: core.ChangeEvent{
			EventType:  core.EventTypeCreated,
			ObjectType: core.ObjectTypeRow,
			RowID:      "row-1",
		},
	})
	if err != nil {
		t.Fatalf("execute process row: %v", err)
	}
	if !called {
		t.Fatal("expected process row invocation")
	}
}

func TestCommands_RequireAService(t *testing.T) {
	if err := NewReconcileWebhookCommand(nil).Execute(context.Background(), ReconcileWebhookMessage{}); err == nil {
		t.Fatal("expected a dependency error")
	}
	if err := NewProcessRowCommand(nil).Execute(context.Background(), ProcessRowMessage{}); err == nil {
		t.Fatal("expected a dependency error")
	}
}

func TestMessageValidation(t *testing.T) {
	if err := (ReconcileWebhookMessage{}).Validate(); err == nil {
		t.Fatal("expected an error for a blank callback url")
	}
	if err := (ReconcileWebhookMessage{CallbackURL: "https://relay.example.com/"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := (ProcessRowMessage{}).Validate(); err == nil {
		t.Fatal("expected an error for an empty event")
	}
	invalid := ProcessRowMessage{Event: core.ChangeEvent{
		EventType:  "updated",
		ObjectType: core.ObjectTypeRow,
		RowID:      "row-1",
	}}
	if err := invalid.Validate(); err == nil {
		t.Fatal("expected an error for a non-created event")
	}
	valid := ProcessRowMessage{Event: core.ChangeEvent{
		EventType:  core.EventTypeCreated,
		ObjectType: core.ObjectTypeRow,
		RowID:      "row-1",
	}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
