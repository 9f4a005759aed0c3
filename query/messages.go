// Package query exposes the relay's read paths as dispatchable query
// messages.
package query

import (
	"fmt"
	"strings"
)

const (
	TypeSubscriptionStatus = "relay.query.subscription.status"
	TypeLoadRow            = "relay.query.row.load"
)

type SubscriptionStatusMessage struct {
	SheetID string
	Name    string
}

func (SubscriptionStatusMessage) Type() string { return TypeSubscriptionStatus }

func (m SubscriptionStatusMessage) Validate() error {
	if strings.TrimSpace(m.SheetID) == "" {
		return fmt.Errorf("query: sheet id is required")
	}
	return nil
}

type LoadRowMessage struct {
	RowID string
}

func (LoadRowMessage) Type() string { return TypeLoadRow }

func (m LoadRowMessage) Validate() error {
	if strings.TrimSpace(m.RowID) == "" {
		return fmt.Errorf("query: row id is required")
	}
	return nil
}
