package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig      Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	subscriptionClient SubscriptionClient
	rowFetcher         RowFetcher
	messageSender      MessageSender
	now                func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithSubscriptionClient(client SubscriptionClient) Option {
	return func(b *serviceBuilder) {
		b.subscriptionClient = client
	}
}

func WithRowFetcher(fetcher RowFetcher) Option {
	return func(b *serviceBuilder) {
		b.rowFetcher = fetcher
	}
}

func WithMessageSender(sender MessageSender) Option {
	return func(b *serviceBuilder) {
		b.messageSender = sender
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.now = now
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("sheet-relay", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return relayErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	smartsheet := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Smartsheet.Token) != "" {
		smartsheet["token"] = cfg.Smartsheet.Token
	}
	if includeZero || strings.TrimSpace(cfg.Smartsheet.SheetID) != "" {
		smartsheet["sheet_id"] = cfg.Smartsheet.SheetID
	}
	if includeZero || strings.TrimSpace(cfg.Smartsheet.BaseURL) != "" {
		smartsheet["base_url"] = cfg.Smartsheet.BaseURL
	}
	if len(smartsheet) > 0 {
		layer["smartsheet"] = smartsheet
	}

	webex := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webex.Token) != "" {
		webex["token"] = cfg.Webex.Token
	}
	if includeZero || strings.TrimSpace(cfg.Webex.RoomID) != "" {
		webex["room_id"] = cfg.Webex.RoomID
	}
	if includeZero || strings.TrimSpace(cfg.Webex.BaseURL) != "" {
		webex["base_url"] = cfg.Webex.BaseURL
	}
	if len(webex) > 0 {
		layer["webex"] = webex
	}

	webhook := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webhook.Name) != "" {
		webhook["name"] = cfg.Webhook.Name
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.PublicURL) != "" {
		webhook["public_url"] = cfg.Webhook.PublicURL
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.Version) != "" {
		webhook["version"] = cfg.Webhook.Version
	}
	if len(webhook) > 0 {
		layer["webhook"] = webhook
	}

	if includeZero || cfg.Columns != (ColumnMap{}) {
		layer["columns"] = map[string]any{
			"challenge":  cfg.Columns.Challenge,
			"full_name":  cfg.Columns.FullName,
			"first_name": cfg.Columns.FirstName,
			"last_name":  cfg.Columns.LastName,
			"guess":      cfg.Columns.Guess,
			"profile":    cfg.Columns.Profile,
		}
	}
	if includeZero || strings.TrimSpace(cfg.MessageTemplate) != "" {
		layer["message_template"] = cfg.MessageTemplate
	}
	if includeZero || cfg.RequestTimeout > 0 {
		layer["request_timeout"] = cfg.RequestTimeout
	}
	if includeZero || cfg.Port > 0 {
		layer["port"] = cfg.Port
	}
	return layer
}
