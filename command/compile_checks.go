package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ReconcileWebhookMessage] = (*ReconcileWebhookCommand)(nil)
	_ gocmd.Commander[ProcessRowMessage]       = (*ProcessRowCommand)(nil)
)
