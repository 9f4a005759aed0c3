package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Reconciler ensures exactly one enabled webhook subscription exists for
// the configured sheet and callback URL. It runs once per process, fully
// sequential: list, decide, create, activate. It never deletes, renames,
// or re-enables subscriptions.
type Reconciler struct {
	Client  SubscriptionClient
	SheetID string
	Name    string
	Version string
	Timeout time.Duration
	Logger  Logger
}

func NewReconciler(client SubscriptionClient, cfg Config, logger Logger) *Reconciler {
	return &Reconciler{
		Client:  client,
		SheetID: strings.TrimSpace(cfg.Smartsheet.SheetID),
		Name:    strings.TrimSpace(cfg.Webhook.Name),
		Version: strings.TrimSpace(cfg.Webhook.Version),
		Timeout: cfg.RequestTimeout,
		Logger:  glog.Ensure(logger),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, callbackURL string) (ReconcileResult, error) {
	if r == nil || r.Client == nil {
		return ReconcileResult{}, reconcileError(
			"core: reconciler requires a subscription client",
			goerrors.CategoryInternal,
			RelayErrorInternal,
			nil,
		)
	}
	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		return ReconcileResult{}, reconcileError(
			"core: callback url is required",
			goerrors.CategoryBadInput,
			RelayErrorBadInput,
			nil,
		)
	}
	if strings.TrimSpace(r.SheetID) == "" {
		return ReconcileResult{}, reconcileError(
			"core: sheet id is required",
			goerrors.CategoryBadInput,
			RelayErrorBadInput,
			nil,
		)
	}

	listCtx, cancel := r.callContext(ctx)
	subscriptions, err := r.Client.ListSubscriptions(listCtx)
	cancel()
	if err != nil {
		return ReconcileResult{}, reconcileWrapError(
			err,
			"core: list webhook subscriptions",
			RelayErrorSubscriptionList,
			map[string]any{"sheet_id": r.SheetID},
		)
	}

	var sameURL []Subscription
	for _, subscription := range subscriptions {
		if !subscription.MatchesIdentity(r.SheetID, r.Name) {
			continue
		}
		if subscription.CallbackURL != callbackURL {
			r.warn("subscription for this sheet points at another callback url", map[string]any{
				"subscription_id": subscription.ID,
				"callback_url":    subscription.CallbackURL,
			})
			continue
		}
		sameURL = append(sameURL, subscription)
	}

	if len(sameURL) > 0 {
		authoritative := sameURL[0]
		for _, duplicate := range sameURL[1:] {
			r.warn("several subscriptions share this sheet and callback url, consider deleting the extra one", map[string]any{
				"subscription_id": duplicate.ID,
			})
		}
		if authoritative.Status == SubscriptionStatusEnabled {
			return ReconcileResult{
				Outcome:      OutcomeAlreadyActive,
				Subscription: authoritative,
			}, nil
		}
		return ReconcileResult{
				Outcome:      OutcomeFatalMismatch,
				Subscription: authoritative,
			}, reconcileError(
				fmt.Sprintf(
					"core: subscription %s exists for this sheet but is not enabled; delete it manually and restart",
					authoritative.ID,
				),
				goerrors.CategoryConflict,
				RelayErrorSubscriptionNotEnabled,
				map[string]any{"subscription_id": authoritative.ID, "sheet_id": r.SheetID},
			)
	}

	createCtx, cancel := r.callContext(ctx)
	created, err := r.Client.CreateSubscription(createCtx, CreateSubscriptionInput{
		CallbackURL:   callbackURL,
		Events:        WildcardEvents(),
		Name:          r.Name,
		Scope:         SubscriptionScopeSheet,
		ScopeObjectID: r.SheetID,
		Version:       r.Version,
	})
	cancel()
	if err != nil {
		return ReconcileResult{}, reconcileWrapError(
			err,
			"core: create webhook subscription",
			RelayErrorSubscriptionCreate,
			map[string]any{"sheet_id": r.SheetID, "callback_url": callbackURL},
		)
	}

	activateCtx, cancel := r.callContext(ctx)
	activated, err := r.Client.SetSubscriptionEnabled(activateCtx, created.ID, true)
	cancel()
	if err != nil {
		return ReconcileResult{}, reconcileWrapError(
			err,
			"core: activate webhook subscription",
			RelayErrorSubscriptionActivate,
			map[string]any{"subscription_id": created.ID, "sheet_id": r.SheetID},
		)
	}
	if activated.Status != SubscriptionStatusEnabled {
		return ReconcileResult{}, reconcileError(
			fmt.Sprintf("core: subscription %s did not report enabled after activation", created.ID),
			goerrors.CategoryExternal,
			RelayErrorSubscriptionActivate,
			map[string]any{"subscription_id": created.ID, "status": string(activated.Status)},
		)
	}

	return ReconcileResult{
		Outcome:      OutcomeCreated,
		Subscription: activated,
	}, nil
}

func (r *Reconciler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r == nil || r.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.Timeout)
}

func (r *Reconciler) warn(message string, fields map[string]any) {
	if r == nil || r.Logger == nil {
		return
	}
	logger := r.Logger
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	logger.Warn(message, flattenFields(fields)...)
}

func reconcileError(
	message string,
	category goerrors.Category,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(relayHTTPStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func reconcileWrapError(
	source error,
	message string,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
