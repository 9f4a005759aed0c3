package sheetrelay

import (
	"fmt"

	relaycommand "github.com/goliatone/go-sheet-relay/command"
	relayquery "github.com/goliatone/go-sheet-relay/query"
)

// CommandQueryService is the surface the facade handlers need. *core.Service
// satisfies it.
type CommandQueryService interface {
	relaycommand.MutatingService
	relayquery.SubscriptionReader
	relayquery.RowReader
}

type Commands struct {
	Reconcile  *relaycommand.ReconcileWebhookCommand
	ProcessRow *relaycommand.ProcessRowCommand
}

type Queries struct {
	SubscriptionStatus *relayquery.SubscriptionStatusQuery
	LoadRow            *relayquery.LoadRowQuery
}

// Facade bundles the relay's command and query handlers around one service.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("sheetrelay: command/query service is required")
	}
	facade := &Facade{service: service}
	facade.commands = Commands{
		Reconcile:  relaycommand.NewReconcileWebhookCommand(service),
		ProcessRow: relaycommand.NewProcessRowCommand(service),
	}
	facade.queries = Queries{
		SubscriptionStatus: relayquery.NewSubscriptionStatusQuery(service),
		LoadRow:            relayquery.NewLoadRowQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
