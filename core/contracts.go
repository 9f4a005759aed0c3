package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// CreateSubscriptionInput carries the fixed field set used when the
// reconciler registers a new webhook.
type CreateSubscriptionInput struct {
	CallbackURL   string
	Events        []string
	Name          string
	Scope         string
	ScopeObjectID string
	Version       string
}

// SubscriptionClient is the remote webhook-subscription resource: list,
// create, and set-enabled, keyed by (scope, scopeObjectId, name).
type SubscriptionClient interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (Subscription, error)
	SetSubscriptionEnabled(ctx context.Context, id string, enabled bool) (Subscription, error)
}

// RowFetcher retrieves the ordered cells of one row.
type RowFetcher interface {
	FetchRow(ctx context.Context, sheetID string, rowID string) (Row, error)
}

// MessageSender delivers a rendered message to a chat destination.
// Fire-and-forget from the core's perspective: the result is logged, never
// retried.
type MessageSender interface {
	SendMessage(ctx context.Context, destination string, msg Message) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Query                map[string]string
	Headers              map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// InboundRequest is a raw callback delivery before decoding.
type InboundRequest struct {
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

// InboundResult is what the dispatcher tells the HTTP layer to answer.
// Body is non-nil only for handshake echoes.
type InboundResult struct {
	Accepted   bool
	StatusCode int
	Body       []byte
	Metadata   map[string]any
}

// RowHandler processes one row-created event. Errors are logged and
// dropped by the caller; the notification stays acknowledged either way.
type RowHandler interface {
	HandleRowCreated(ctx context.Context, event ChangeEvent) error
}

// IdempotencyClaimStore dedupes inbound deliveries by claim key.
type IdempotencyClaimStore interface {
	Claim(ctx context.Context, key string, lease time.Duration) (claimID string, accepted bool, err error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error, retryAt time.Time) error
}

// JobExecutionMessage describes a unit of relay work handed to a queue
// runtime.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
