// Package sheetrelay re-exports the relay's core surface so downstream
// callers can depend on a single import path.
package sheetrelay

import "github.com/goliatone/go-sheet-relay/core"

type Config = core.Config

type SmartsheetConfig = core.SmartsheetConfig
type WebexConfig = core.WebexConfig
type WebhookConfig = core.WebhookConfig

type Option = core.Option

type Service = core.Service

type Subscription = core.Subscription
type SubscriptionStatus = core.SubscriptionStatus
type ReconcileResult = core.ReconcileResult
type ReconcileOutcome = core.ReconcileOutcome
type Row = core.Row
type Cell = core.Cell
type Entry = core.Entry
type ChangeEvent = core.ChangeEvent
type CallbackEnvelope = core.CallbackEnvelope
type Message = core.Message
type ValidationResult = core.ValidationResult

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithSubscriptionClient = core.WithSubscriptionClient
	WithRowFetcher         = core.WithRowFetcher
	WithMessageSender      = core.WithMessageSender
	WithClock              = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
