package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service wires the entry processor, the reconciler, and the collaborator
// clients behind one constructed value. Configuration is explicit; nothing
// is read from ambient process state after construction.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	subscriptions   SubscriptionClient
	rows            RowFetcher
	sender          MessageSender
	entries         *EntryProcessor
	reconciler      *Reconciler
	now             func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("sheet-relay", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("sheet-relay"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time {
			return time.Now().UTC()
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	if err := finalConfig.ValidateRequired(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: configuration is incomplete").
			WithCode(relayHTTPStatus(goerrors.CategoryBadInput)).
			WithTextCode(RelayErrorConfigMissing)
	}

	service := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		subscriptions:   builder.subscriptionClient,
		rows:            builder.rowFetcher,
		sender:          builder.messageSender,
		entries:         NewEntryProcessor(finalConfig.Columns),
		now:             builder.now,
	}
	service.reconciler = NewReconciler(builder.subscriptionClient, finalConfig, logger)
	return service, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) EntryProcessor() *EntryProcessor {
	if s == nil {
		return nil
	}
	return s.entries
}

// Reconcile resolves the webhook registration for the configured sheet.
// Errors here are fatal for startup; the caller decides how to exit.
func (s *Service) Reconcile(ctx context.Context, callbackURL string) (ReconcileResult, error) {
	if s == nil || s.reconciler == nil {
		return ReconcileResult{}, s.mapError(fmt.Errorf("core: service requires a reconciler"))
	}
	startedAt := s.clock()
	result, err := s.reconciler.Reconcile(ctx, callbackURL)
	s.observeOperation(ctx, startedAt, "reconcile", err, map[string]any{
		"sheet_id":        s.config.Smartsheet.SheetID,
		"callback_url":    strings.TrimSpace(callbackURL),
		"outcome":         string(result.Outcome),
		"subscription_id": result.Subscription.ID,
	})
	if err != nil {
		return result, s.mapError(err)
	}
	return result, nil
}

// ProcessRowCreated fetches the row behind a created/row event, evaluates
// it, renders the message, and sends it. Events for other sheets are
// ignored. Failures are logged here and returned; callers on the inbound
// path drop them, the command bus propagates them.
func (s *Service) ProcessRowCreated(ctx context.Context, event ChangeEvent) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := s.clock()

	if !event.IsRowCreated() {
		s.logInfo(ctx, "ignoring unsupported event", map[string]any{
			"event_type":  event.EventType,
			"object_type": event.ObjectType,
		})
		return nil
	}
	if scope := strings.TrimSpace(event.ScopeObjectID); scope != "" && scope != s.config.Smartsheet.SheetID {
		s.logInfo(ctx, "ignoring event for another sheet", map[string]any{
			"scope_object_id": scope,
			"sheet_id":        s.config.Smartsheet.SheetID,
		})
		return nil
	}
	if s.rows == nil || s.sender == nil {
		err := s.mapError(fmt.Errorf("core: row fetcher and message sender are required"))
		s.observeOperation(ctx, startedAt, "process_row", err, map[string]any{"row_id": event.RowID})
		return err
	}

	fetchCtx, cancel := s.callContext(ctx)
	row, err := s.rows.FetchRow(fetchCtx, s.config.Smartsheet.SheetID, event.RowID)
	cancel()
	if err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "process_row", mapped, map[string]any{
			"row_id":   event.RowID,
			"sheet_id": s.config.Smartsheet.SheetID,
		})
		return mapped
	}

	result := s.entries.Evaluate(row)
	message, err := s.entries.Render(row, result, s.config.MessageTemplate)
	if err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "process_row", mapped, map[string]any{"row_id": event.RowID})
		return mapped
	}
	message.CorrelationID = uuid.NewString()

	sendCtx, cancel := s.callContext(ctx)
	err = s.sender.SendMessage(sendCtx, s.config.Webex.RoomID, message)
	cancel()
	if err != nil {
		mapped := s.mapError(err)
		s.observeOperation(ctx, startedAt, "process_row", mapped, map[string]any{
			"row_id":  event.RowID,
			"room_id": s.config.Webex.RoomID,
		})
		return mapped
	}

	s.observeOperation(ctx, startedAt, "process_row", nil, map[string]any{
		"row_id":         event.RowID,
		"reason":         string(result.Reason),
		"valid":          result.Valid,
		"correlation_id": message.CorrelationID,
	})
	return nil
}

// HandleRowCreated implements RowHandler for the inbound dispatcher.
func (s *Service) HandleRowCreated(ctx context.Context, event ChangeEvent) error {
	return s.ProcessRowCreated(ctx, event)
}

// ListSubscriptions exposes the raw subscription list for status queries.
func (s *Service) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	if s == nil || s.subscriptions == nil {
		return nil, s.mapError(fmt.Errorf("core: subscription client is required"))
	}
	listCtx, cancel := s.callContext(ctx)
	defer cancel()
	subscriptions, err := s.subscriptions.ListSubscriptions(listCtx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return subscriptions, nil
}

// LoadRow exposes direct row loading for queries and diagnostics.
func (s *Service) LoadRow(ctx context.Context, rowID string) (Row, error) {
	if s == nil || s.rows == nil {
		return Row{}, s.mapError(fmt.Errorf("core: row fetcher is required"))
	}
	rowID = strings.TrimSpace(rowID)
	if rowID == "" {
		return Row{}, s.mapError(fmt.Errorf("core: row id is required"))
	}
	fetchCtx, cancel := s.callContext(ctx)
	defer cancel()
	row, err := s.rows.FetchRow(fetchCtx, s.config.Smartsheet.SheetID, rowID)
	if err != nil {
		return Row{}, s.mapError(err)
	}
	return row, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil || s.config.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.RequestTimeout)
}

func (s *Service) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s != nil && s.errorMapper != nil {
		if mapped := s.errorMapper(err); mapped != nil {
			return mapped
		}
	}
	return relayErrorMapper(err)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return relayErrorMapper(err)
}

var _ RowHandler = (*Service)(nil)
