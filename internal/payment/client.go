package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CheckoutLine is one order line forwarded to the provider. Prices are the
// order's snapshots, not current catalog prices.
type CheckoutLine struct {
	Name           string
	Description    string
	Quantity       int
	UnitPriceCents int64
}

// CheckoutParams describes the session to create.
type CheckoutParams struct {
	OrderID    string
	UserID     string
	Currency   string
	SuccessURL string
	CancelURL  string
	Lines      []CheckoutLine
}

// CheckoutSession is the provider's answer: the session id and the URL the
// client gets redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client talks to the payment provider's REST API.
type Client struct {
	apiBase   string
	secretKey string
	http      *http.Client
}

// NewClient creates a provider client authenticated by the secret key.
func NewClient(apiBase, secretKey string) *Client {
	return &Client{
		apiBase:   strings.TrimRight(apiBase, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCheckoutSession opens a hosted checkout session for an order. The
// order and user ids travel in the session metadata and come back to us in
// webhook events.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", p.CancelURL)
	form.Set("client_reference_id", p.OrderID)
	form.Set("metadata[orderId]", p.OrderID)
	form.Set("metadata[userId]", p.UserID)

	for i, line := range p.Lines {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", p.Currency)
		form.Set(prefix+"[price_data][product_data][name]", line.Name)
		if line.Description != "" {
			form.Set(prefix+"[price_data][product_data][description]", line.Description)
		}
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(line.UnitPriceCents, 10))
		form.Set(prefix+"[quantity]", strconv.Itoa(line.Quantity))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout session request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &session, nil
}
