package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidColumnMap    = errors.New("core: invalid column map")
	ErrRowNotFound         = errors.New("core: row not found")
	ErrSubscriptionNotSeen = errors.New("core: subscription not found")
)

// SubscriptionScopeSheet is the only scope this relay registers against.
const SubscriptionScopeSheet = "sheet"

// RegistrationName identifies subscriptions created by this relay. The
// reconciler keys on (scope, scopeObjectId, name); renaming this breaks
// idempotence against already-registered sheets.
const RegistrationName = "smartsheet-to-webexteams"

// SubscriptionVersion pins the webhook payload version requested at
// creation time.
const SubscriptionVersion = "1"

// WildcardEvents returns the event filter used for new subscriptions.
func WildcardEvents() []string {
	return []string{"*.*"}
}

type SubscriptionStatus string

const (
	SubscriptionStatusEnabled  SubscriptionStatus = "ENABLED"
	SubscriptionStatusDisabled SubscriptionStatus = "DISABLED"
)

// Subscription is the relay's view of a remote webhook registration.
type Subscription struct {
	ID            string
	Name          string
	Scope         string
	ScopeObjectID string
	CallbackURL   string
	Status        SubscriptionStatus
	Events        []string
	Version       string
}

// MatchesIdentity reports whether the subscription carries the relay's
// registration identity for the given sheet.
func (s Subscription) MatchesIdentity(sheetID string, name string) bool {
	return s.Scope == SubscriptionScopeSheet &&
		strings.TrimSpace(s.ScopeObjectID) == strings.TrimSpace(sheetID) &&
		s.Name == strings.TrimSpace(name)
}

type ReconcileOutcome string

const (
	OutcomeAlreadyActive ReconcileOutcome = "already_active"
	OutcomeCreated       ReconcileOutcome = "created"
	OutcomeFatalMismatch ReconcileOutcome = "fatal_mismatch"
)

// ReconcileResult reports what the reconciler found or did. Subscription is
// the authoritative registration after a successful run.
type ReconcileResult struct {
	Outcome      ReconcileOutcome
	Subscription Subscription
}

// Cell is a single sheet cell as delivered by the sheet API. Value may be a
// string, a JSON number (float64), or nil when the cell is empty.
type Cell struct {
	ColumnID     int64
	Value        any
	DisplayValue string
}

// Text returns the trimmed textual rendering of the cell value, or the
// empty string for absent cells.
func (c Cell) Text() string {
	switch value := c.Value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

// Empty reports whether the cell carries no usable value.
func (c Cell) Empty() bool {
	return c.Text() == ""
}

// Row is an ordered sequence of cells fetched for one sheet row. Column
// positions are significant; ColumnMap owns their meaning.
type Row struct {
	ID        string
	RowNumber int
	Cells     []Cell
}

// Cell returns the cell at the given column index, or an empty cell when
// the row is shorter than the index.
func (r Row) Cell(index int) Cell {
	if index < 0 || index >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[index]
}

// ColumnMap declares which column index carries which entry field. The
// layout is fixed by the external sheet; this table is the single place the
// coupling lives.
type ColumnMap struct {
	Challenge int `koanf:"challenge" mapstructure:"challenge"`
	FullName  int `koanf:"full_name" mapstructure:"full_name"`
	FirstName int `koanf:"first_name" mapstructure:"first_name"`
	LastName  int `koanf:"last_name" mapstructure:"last_name"`
	Guess     int `koanf:"guess" mapstructure:"guess"`
	Profile   int `koanf:"profile" mapstructure:"profile"`
}

func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		Challenge: 0,
		FullName:  1,
		FirstName: 2,
		LastName:  3,
		Guess:     4,
		Profile:   6,
	}
}

func (m ColumnMap) Validate() error {
	for _, index := range []int{m.Challenge, m.FullName, m.FirstName, m.LastName, m.Guess, m.Profile} {
		if index < 0 {
			return fmt.Errorf("%w: negative column index %d", ErrInvalidColumnMap, index)
		}
	}
	return nil
}

// Entry is the named-field projection of a row through a ColumnMap.
type Entry struct {
	Challenge string
	FullName  string
	FirstName string
	LastName  string
	Guess     Cell
	Profile   string
}

// Project reads the mapped columns out of a row.
func (m ColumnMap) Project(row Row) Entry {
	return Entry{
		Challenge: row.Cell(m.Challenge).Text(),
		FullName:  row.Cell(m.FullName).Text(),
		FirstName: row.Cell(m.FirstName).Text(),
		LastName:  row.Cell(m.LastName).Text(),
		Guess:     row.Cell(m.Guess),
		Profile:   row.Cell(m.Profile).Text(),
	}
}

// Name resolves the display name: the full-name column wins, otherwise
// first and last name are joined.
func (e Entry) Name() string {
	if e.FullName != "" {
		return e.FullName
	}
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type ReasonCode string

const (
	ReasonOK           ReasonCode = "OK"
	ReasonMissingField ReasonCode = "MISSING_FIELD"
	ReasonBadFormat    ReasonCode = "BAD_FORMAT"
	ReasonNegative     ReasonCode = "NEGATIVE"
)

// ValidationResult is produced once per row and immutable after creation.
// Field names the offending field for MISSING_FIELD outcomes.
type ValidationResult struct {
	Valid  bool
	Reason ReasonCode
	Field  string
	Guess  GuessValue
}

// ChangeEvent is one decoded notification from the sheet platform. The
// relay only processes created/row pairs; everything else is acked and
// dropped.
type ChangeEvent struct {
	EventType     string
	ObjectType    string
	RowID         string
	ScopeObjectID string
}

const (
	EventTypeCreated = "created"
	ObjectTypeRow    = "row"
)

// IsRowCreated reports whether the event is the one kind this relay
// processes.
func (e ChangeEvent) IsRowCreated() bool {
	return e.EventType == EventTypeCreated && e.ObjectType == ObjectTypeRow
}

// CallbackEnvelope is a decoded webhook callback: either a handshake
// challenge or a batch of change events scoped to one sheet.
type CallbackEnvelope struct {
	Challenge     string
	Nonce         string
	Scope         string
	ScopeObjectID string
	Events        []ChangeEvent
}

// Message is a rendered outbound chat message.
type Message struct {
	Markdown      string
	CorrelationID string
}
