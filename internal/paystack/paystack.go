// Package paystack is a thin client for the parts of the Paystack API this
// platform uses: transaction initialize/verify for subscriptions, transfer
// recipients and transfers for withdrawal payouts, and the bank list.
package paystack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.paystack.co"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRequestFailed       = errors.New("paystack request failed")
)

type Client struct {
	client    *resty.Client
	secretKey string
}

func New(secretKey string, opts ...Option) *Client {
	c := &Client{
		client: resty.New().
			SetBaseURL(defaultBaseURL).
			SetTimeout(15 * time.Second).
			SetHeader("Content-Type", "application/json"),
		secretKey: secretKey,
	}

	c.client.SetAuthToken(secretKey)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type Option func(c *Client)

// WithBaseURL points the client at a different host, used by tests to target
// a local httptest server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.client.SetBaseURL(baseURL)
	}
}

// envelope is Paystack's standard response wrapper.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type Transaction struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"` // kobo
	PaidAt    string `json:"paid_at"`
	Currency  string `json:"currency"`
}

type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeTransaction starts a checkout session; amount is in kobo.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amountKobo int64, reference, callbackURL string) (*Authorization, error) {
	result := new(envelope[Authorization])

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"email":        email,
			"amount":       amountKobo,
			"reference":    reference,
			"callback_url": callbackURL,
		}).
		SetResult(result).
		Post("/transaction/initialize")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.IsError() || !result.Status {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, result.Message)
	}

	return &result.Data, nil
}

// VerifyTransaction fetches the gateway's view of a transaction. Only a
// response with status "success" should be treated as payment received.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	result := new(envelope[Transaction])

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(result).
		SetPathParams(map[string]string{
			"reference": reference,
		}).
		Get("/transaction/verify/{reference}")
	if err != nil {
		return nil, fmt.Errorf("client.R: %w", err)
	}

	if resp.StatusCode() == 404 {
		return nil, ErrTransactionNotFound
	}

	if resp.IsError() || !result.Status {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, result.Message)
	}

	return &result.Data, nil
}
