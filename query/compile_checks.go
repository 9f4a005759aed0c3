package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-sheet-relay/core"
)

var (
	_ gocmd.Querier[SubscriptionStatusMessage, SubscriptionStatus] = (*SubscriptionStatusQuery)(nil)
	_ gocmd.Querier[LoadRowMessage, core.Row]                      = (*LoadRowQuery)(nil)
)
