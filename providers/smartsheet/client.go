// Package smartsheet is the relay's client for the sheet platform: webhook
// subscription management, row retrieval, and callback payload decoding.
package smartsheet

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-sheet-relay/core"
)

type Client struct {
	Transport core.TransportAdapter
	BaseURL   string
	Token     string
	Timeout   time.Duration
}

func NewClient(transport core.TransportAdapter, cfg core.SmartsheetConfig, timeout time.Duration) *Client {
	return &Client{
		Transport: transport,
		BaseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		Token:     strings.TrimSpace(cfg.Token),
		Timeout:   timeout,
	}
}

// webhookResource is the wire shape of a subscription. Identifiers arrive
// as JSON numbers; the relay keeps them as strings.
type webhookResource struct {
	ID            json.Number `json:"id"`
	Name          string      `json:"name"`
	Scope         string      `json:"scope"`
	ScopeObjectID json.Number `json:"scopeObjectId"`
	CallbackURL   string      `json:"callbackUrl"`
	Enabled       bool        `json:"enabled"`
	Status        string      `json:"status"`
	Events        []string    `json:"events"`
	Version       json.Number `json:"version"`
}

func (r webhookResource) toSubscription() core.Subscription {
	// The status string decides. Smartsheet can answer enabled=true with a
	// status like NEW_NOT_VERIFIED for a webhook that is not delivering;
	// the flag only stands in when no status was sent.
	status := core.SubscriptionStatus(strings.ToUpper(strings.TrimSpace(r.Status)))
	if status == "" {
		status = core.SubscriptionStatusDisabled
		if r.Enabled {
			status = core.SubscriptionStatusEnabled
		}
	}
	return core.Subscription{
		ID:            r.ID.String(),
		Name:          r.Name,
		Scope:         r.Scope,
		ScopeObjectID: r.ScopeObjectID.String(),
		CallbackURL:   r.CallbackURL,
		Status:        status,
		Events:        r.Events,
		Version:       r.Version.String(),
	}
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	res, err := c.do(ctx, core.TransportRequest{
		Method: "GET",
		URL:    c.BaseURL + "/webhooks",
		Query:  map[string]string{"includeAll": "true"},
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, statusError("list webhooks", res.StatusCode, res.Body)
	}

	var payload struct {
		Data []webhookResource `json:"data"`
	}
	if err := decodeBody(res.Body, &payload); err != nil {
		return nil, decodeError("list webhooks", err)
	}
	subscriptions := make([]core.Subscription, 0, len(payload.Data))
	for _, resource := range payload.Data {
		subscriptions = append(subscriptions, resource.toSubscription())
	}
	return subscriptions, nil
}

func (c *Client) CreateSubscription(ctx context.Context, input core.CreateSubscriptionInput) (core.Subscription, error) {
	version, err := strconv.Atoi(strings.TrimSpace(input.Version))
	if err != nil || version <= 0 {
		version = 1
	}
	body, err := json.Marshal(map[string]any{
		"callbackUrl":   input.CallbackURL,
		"events":        input.Events,
		"name":          input.Name,
		"scope":         input.Scope,
		"scopeObjectId": input.ScopeObjectID,
		"version":       version,
	})
	if err != nil {
		return core.Subscription{}, decodeError("create webhook", err)
	}

	res, err := c.do(ctx, core.TransportRequest{
		Method:  "POST",
		URL:     c.BaseURL + "/webhooks",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return core.Subscription{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.Subscription{}, statusError("create webhook", res.StatusCode, res.Body)
	}

	var payload struct {
		Result webhookResource `json:"result"`
	}
	if err := decodeBody(res.Body, &payload); err != nil {
		return core.Subscription{}, decodeError("create webhook", err)
	}
	return payload.Result.toSubscription(), nil
}

func (c *Client) SetSubscriptionEnabled(ctx context.Context, id string, enabled bool) (core.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Subscription{}, inputError("subscription id is required")
	}
	body, err := json.Marshal(map[string]any{"enabled": enabled})
	if err != nil {
		return core.Subscription{}, decodeError("update webhook", err)
	}

	res, err := c.do(ctx, core.TransportRequest{
		Method:  "PUT",
		URL:     c.BaseURL + "/webhooks/" + id,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return core.Subscription{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.Subscription{}, statusError("update webhook", res.StatusCode, res.Body)
	}

	var payload struct {
		Result webhookResource `json:"result"`
	}
	if err := decodeBody(res.Body, &payload); err != nil {
		return core.Subscription{}, decodeError("update webhook", err)
	}
	return payload.Result.toSubscription(), nil
}

// rowResource is the wire shape of a fetched row. Cell values keep their
// JSON types; the core decides how to read them.
type rowResource struct {
	ID        json.Number `json:"id"`
	RowNumber int         `json:"rowNumber"`
	Cells     []struct {
		ColumnID     json.Number `json:"columnId"`
		Value        any         `json:"value"`
		DisplayValue string      `json:"displayValue"`
	} `json:"cells"`
}

func (c *Client) FetchRow(ctx context.Context, sheetID string, rowID string) (core.Row, error) {
	sheetID = strings.TrimSpace(sheetID)
	rowID = strings.TrimSpace(rowID)
	if sheetID == "" || rowID == "" {
		return core.Row{}, inputError("sheet id and row id are required")
	}

	res, err := c.do(ctx, core.TransportRequest{
		Method: "GET",
		URL:    c.BaseURL + "/sheets/" + sheetID + "/rows/" + rowID,
	})
	if err != nil {
		return core.Row{}, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return core.Row{}, statusError("fetch row", res.StatusCode, res.Body)
	}

	var resource rowResource
	if err := decodeBody(res.Body, &resource); err != nil {
		return core.Row{}, decodeError("fetch row", err)
	}

	row := core.Row{
		ID:        resource.ID.String(),
		RowNumber: resource.RowNumber,
		Cells:     make([]core.Cell, 0, len(resource.Cells)),
	}
	for _, cell := range resource.Cells {
		columnID, _ := cell.ColumnID.Int64()
		row.Cells = append(row.Cells, core.Cell{
			ColumnID:     columnID,
			Value:        cell.Value,
			DisplayValue: cell.DisplayValue,
		})
	}
	return row, nil
}

func (c *Client) do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if c == nil || c.Transport == nil {
		return core.TransportResponse{}, internalError("transport adapter is required")
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + c.Token
	if req.Timeout <= 0 {
		req.Timeout = c.Timeout
	}
	return c.Transport.Do(ctx, req)
}

// decodeBody keeps untyped cell values as their plain JSON types; only
// identifier fields are typed as json.Number.
func decodeBody(body []byte, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var (
	_ core.SubscriptionClient = (*Client)(nil)
	_ core.RowFetcher         = (*Client)(nil)
)
