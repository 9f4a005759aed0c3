package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sheet-relay/core"
)

type MutatingService interface {
	Reconcile(ctx context.Context, callbackURL string) (core.ReconcileResult, error)
	ProcessRowCreated(ctx context.Context, event core.ChangeEvent) error
}

type ReconcileWebhookCommand struct {
	service MutatingService
}

func NewReconcileWebhookCommand(service MutatingService) *ReconcileWebhookCommand {
	return &ReconcileWebhookCommand{service: service}
}

func (c *ReconcileWebhookCommand) Execute(ctx context.Context, msg ReconcileWebhookMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reconcile service is required")
	}
	out, err := c.service.Reconcile(ctx, msg.CallbackURL)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ProcessRowCommand struct {
	service MutatingService
}

func NewProcessRowCommand(service MutatingService) *ProcessRowCommand {
	return &ProcessRowCommand{service: service}
}

func (c *ProcessRowCommand) Execute(ctx context.Context, msg ProcessRowMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: row service is required")
	}
	return c.service.ProcessRowCreated(ctx, msg.Event)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
