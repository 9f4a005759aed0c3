package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-sheet-relay/core"
)

type SubscriptionReader interface {
	ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
}

type RowReader interface {
	LoadRow(ctx context.Context, rowID string) (core.Row, error)
}

// SubscriptionStatus summarizes the registration state for one sheet, the
// read-side counterpart of a reconcile run.
type SubscriptionStatus struct {
	Registered   bool
	Enabled      bool
	Subscription core.Subscription
	Duplicates   int
}

type SubscriptionStatusQuery struct {
	reader SubscriptionReader
}

func NewSubscriptionStatusQuery(reader SubscriptionReader) *SubscriptionStatusQuery {
	return &SubscriptionStatusQuery{reader: reader}
}

func (q *SubscriptionStatusQuery) Query(ctx context.Context, msg SubscriptionStatusMessage) (SubscriptionStatus, error) {
	if q == nil || q.reader == nil {
		return SubscriptionStatus{}, queryDependencyError("query: subscription reader is required")
	}
	name := strings.TrimSpace(msg.Name)
	if name == "" {
		name = core.RegistrationName
	}

	subscriptions, err := q.reader.ListSubscriptions(ctx)
	if err != nil {
		return SubscriptionStatus{}, err
	}

	status := SubscriptionStatus{}
	for _, subscription := range subscriptions {
		if !subscription.MatchesIdentity(msg.SheetID, name) {
			continue
		}
		if !status.Registered {
			status.Registered = true
			status.Enabled = subscription.Status == core.SubscriptionStatusEnabled
			status.Subscription = subscription
			continue
		}
		status.Duplicates++
	}
	return status, nil
}

type LoadRowQuery struct {
	reader RowReader
}

func NewLoadRowQuery(reader RowReader) *LoadRowQuery {
	return &LoadRowQuery{reader: reader}
}

func (q *LoadRowQuery) Query(ctx context.Context, msg LoadRowMessage) (core.Row, error) {
	if q == nil || q.reader == nil {
		return core.Row{}, queryDependencyError("query: row reader is required")
	}
	return q.reader.LoadRow(ctx, msg.RowID)
}
