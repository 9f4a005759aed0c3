// Command sheet-relay runs the Smartsheet to Webex webhook relay: it
// reconciles the webhook registration at startup, then serves the
// callback endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	sheetrelay "github.com/goliatone/go-sheet-relay"
	relaycommand "github.com/goliatone/go-sheet-relay/command"
	"github.com/goliatone/go-sheet-relay/core"
	"github.com/goliatone/go-sheet-relay/inbound"
	"github.com/goliatone/go-sheet-relay/providers/smartsheet"
	"github.com/goliatone/go-sheet-relay/providers/webex"
	"github.com/goliatone/go-sheet-relay/transport"
)

const maxCallbackBodyBytes = 1 << 20

func main() {
	cfg := configFromEnv()

	adapter := transport.NewRESTAdapter(nil)
	client := smartsheet.NewClient(adapter, cfg.Smartsheet, cfg.RequestTimeout)
	sender := webex.NewSender(adapter, cfg.Webex, cfg.RequestTimeout)

	service, err := sheetrelay.NewService(cfg,
		sheetrelay.WithSubscriptionClient(client),
		sheetrelay.WithRowFetcher(client),
		sheetrelay.WithMessageSender(sender),
	)
	if err != nil {
		log.Printf("cannot build the relay service: %v", err)
		os.Exit(1)
	}
	cfg = service.Config()

	facade, err := sheetrelay.NewFacade(service)
	if err != nil {
		log.Printf("cannot build the relay facade: %v", err)
		os.Exit(1)
	}

	reconcile(facade, cfg)

	dispatcher := inbound.NewDispatcher(cfg.Smartsheet.SheetID, service, smartsheet.DecodeCallback)
	dispatcher.Handshake = smartsheet.ChallengeResponse

	startedAt := time.Now().UTC()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]string{
				"message": "Congrats, your app is up and running",
				"since":   startedAt.Format(time.RFC3339),
				"tip":     "Register your app as a Smartsheet WebHook to start receiving events",
			})
		case http.MethodPost:
			serveCallback(w, r, dispatcher)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
				"message": "only GET and POST are supported",
			})
		}
	})

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Printf("sheet-relay listening at %s", addr)
	log.Printf("   GET  /   : for health checks")
	log.Printf("   POST /   : to receive smartsheet payloads")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}

// reconcile resolves the webhook registration through the command bus
// before serving. Missing public URL skips registration; a reconcile
// failure is fatal with a distinct exit code per cause.
func reconcile(facade *sheetrelay.Facade, cfg sheetrelay.Config) {
	callbackURL := strings.TrimSpace(cfg.Webhook.PublicURL)
	if callbackURL == "" {
		log.Printf("no public URL found, will not create the Smartsheet webhook")
		return
	}

	log.Printf("registering a Smartsheet webhook listening at: %s", callbackURL)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collector := gocmd.NewResult[core.ReconcileResult]()
	ctx = gocmd.ContextWithResult(ctx, collector)
	err := facade.Commands().Reconcile.Execute(ctx, relaycommand.ReconcileWebhookMessage{
		CallbackURL: callbackURL,
	})
	if err != nil {
		log.Printf("webhook reconcile failed: %v", err)
		os.Exit(reconcileExitCode(err))
	}
	if result, ok := collector.Load(); ok {
		log.Printf("webhook %s: outcome=%s id=%s", cfg.Webhook.Name, result.Outcome, result.Subscription.ID)
	}
}

func reconcileExitCode(err error) int {
	var richErr *goerrors.Error
	if !errors.As(err, &richErr) {
		return 10
	}
	switch richErr.TextCode {
	case core.RelayErrorSubscriptionNotEnabled:
		return 2
	case core.RelayErrorSubscriptionActivate:
		return 3
	case core.RelayErrorSubscriptionCreate:
		return 5
	default:
		return 10
	}
}

func serveCallback(w http.ResponseWriter, r *http.Request, dispatcher *inbound.Dispatcher) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "cannot read the callback body",
		})
		return
	}

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}

	result, err := dispatcher.Dispatch(r.Context(), core.InboundRequest{
		Headers: headers,
		Body:    body,
	})
	if err != nil && !result.Accepted {
		status := statusOrDefault(result.StatusCode, http.StatusBadRequest)
		if status >= http.StatusInternalServerError {
			writeJSON(w, status, map[string]string{
				"message": "cannot process the event right now",
			})
			return
		}
		writeJSON(w, status, map[string]string{
			"message": "Bad payload for Webhook",
			"details": "either the app is not properly configured, or Smartsheet is running a new API version",
		})
		return
	}

	if len(result.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusOrDefault(result.StatusCode, http.StatusOK))
		w.Write(result.Body)
		return
	}
	writeJSON(w, statusOrDefault(result.StatusCode, http.StatusOK), map[string]string{
		"message": "fine, the event is being processed by the webhook",
	})
}

func statusOrDefault(status, fallback int) int {
	if status <= 0 {
		return fallback
	}
	return status
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("cannot encode response: %v", err)
	}
}

// configFromEnv overlays process environment settings on the defaults.
// PROJECT_DOMAIN computes the public URL for Glitch hosting.
func configFromEnv() sheetrelay.Config {
	cfg := sheetrelay.DefaultConfig()

	cfg.Smartsheet.Token = strings.TrimSpace(os.Getenv("SMARTSHEET_TOKEN"))
	cfg.Smartsheet.SheetID = strings.TrimSpace(os.Getenv("SMARTSHEET_ID"))
	cfg.Webex.Token = strings.TrimSpace(os.Getenv("WEBEX_TOKEN"))
	cfg.Webex.RoomID = strings.TrimSpace(os.Getenv("WEBEX_ROOM_ID"))

	if template := strings.TrimSpace(os.Getenv("MESSAGE_TEMPLATE")); template != "" {
		cfg.MessageTemplate = template
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && parsed > 0 {
			cfg.Port = parsed
		}
	}

	cfg.Webhook.PublicURL = strings.TrimSpace(os.Getenv("PUBLIC_URL"))
	if domain := strings.TrimSpace(os.Getenv("PROJECT_DOMAIN")); domain != "" {
		cfg.Webhook.PublicURL = "https://" + domain + ".glitch.me"
	}

	return cfg
}
