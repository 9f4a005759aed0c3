// Package command exposes the relay's mutations as dispatchable command
// messages.
package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-sheet-relay/core"
)

const (
	TypeReconcileWebhook = "relay.command.webhook.reconcile"
	TypeProcessRow       = "relay.command.row.process"
)

type ReconcileWebhookMessage struct {
	CallbackURL string
}

func (ReconcileWebhookMessage) Type() string { return TypeReconcileWebhook }

func (m ReconcileWebhookMessage) Validate() error {
	if strings.TrimSpace(m.CallbackURL) == "" {
		return fmt.Errorf("command: callback url is required")
	}
	return nil
}

type ProcessRowMessage struct {
	Event core.ChangeEvent
}

func (ProcessRowMessage) Type() string { return TypeProcessRow }

func (m ProcessRowMessage) Validate() error {
	if strings.TrimSpace(m.Event.RowID) == "" {
		return fmt.Errorf("command: row id is required")
	}
	if !m.Event.IsRowCreated() {
		return fmt.Errorf("command: event must be a created/row pair")
	}
	return nil
}
