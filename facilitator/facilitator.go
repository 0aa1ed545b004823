// Package facilitator provides the client for x402 facilitator services,
// which verify and settle signed off-chain payment authorizations on behalf
// of the gateway.
package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentpay/paygate"
)

// maxErrorBody caps how much of a facilitator error body is captured into
// the rejection reason.
const maxErrorBody = 4096

// Facilitator verifies and settles off-chain payment authorizations.
// Both operations are remote calls; a transport failure returns an error
// wrapping paygate.ErrFacilitatorUnavailable, while a facilitator-side
// rejection (including non-2xx responses) is reported through the response
// value with a nil error.
type Facilitator interface {
	// Verify checks a payment authorization without executing it.
	Verify(ctx context.Context, payment paygate.PaymentPayload, requirement paygate.PaymentRequirements) (*paygate.VerifyResponse, error)

	// Settle executes a verified payment on the blockchain.
	Settle(ctx context.Context, payment paygate.PaymentPayload, requirement paygate.PaymentRequirements) (*paygate.SettleResponse, error)
}

// Client is an HTTP Facilitator implementation.
type Client struct {
	// BaseURL is the facilitator endpoint, without a trailing slash.
	BaseURL string

	// HTTPClient is the client used for requests. If nil, a client with
	// the default request timeout is used.
	HTTPClient *http.Client

	// Timeouts bounds the verify and settle calls individually.
	Timeouts paygate.TimeoutConfig

	// Authorization is an optional static Authorization header value
	// (e.g., "Bearer api-key").
	Authorization string
}

// NewClient creates a facilitator client with default timeouts.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: paygate.DefaultTimeouts.RequestTimeout},
		Timeouts:   paygate.DefaultTimeouts,
	}
}

// request is the JSON body sent to the facilitator /verify and /settle
// endpoints.
type request struct {
	X402Version         int                         `json:"x402Version"`
	PaymentPayload      paygate.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements paygate.PaymentRequirements `json:"paymentRequirements"`
}

// Verify checks a payment authorization against a requirement.
// A non-2xx facilitator response is surfaced as IsValid=false with the raw
// status and body captured in the reason.
func (c *Client) Verify(ctx context.Context, payment paygate.PaymentPayload, requirement paygate.PaymentRequirements) (*paygate.VerifyResponse, error) {
	body, status, err := c.post(ctx, "/verify", c.Timeouts.VerifyTimeout, payment, requirement)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return &paygate.VerifyResponse{
			IsValid:       false,
			InvalidReason: rejectionReason("verify", status, body),
		}, nil
	}

	var resp paygate.VerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if resp.Payer == "" {
		resp.Payer = payment.Payer()
	}
	return &resp, nil
}

// Settle executes a verified payment.
// A non-2xx facilitator response is surfaced as Success=false with the raw
// status and body captured in the error reason.
func (c *Client) Settle(ctx context.Context, payment paygate.PaymentPayload, requirement paygate.PaymentRequirements) (*paygate.SettleResponse, error) {
	body, status, err := c.post(ctx, "/settle", c.Timeouts.SettleTimeout, payment, requirement)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return &paygate.SettleResponse{
			Success: false,
			Error:   rejectionReason("settle", status, body),
		}, nil
	}

	var resp paygate.SettleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode settle response: %w", err)
	}
	if resp.Payer == "" {
		resp.Payer = payment.Payer()
	}
	return &resp, nil
}

// post sends one facilitator call and returns the raw response body and
// status. Failed requests are not retried; callers are expected to retry at
// the protocol level with a fresh credential.
func (c *Client) post(ctx context.Context, path string, timeout time.Duration, payment paygate.PaymentPayload, requirement paygate.PaymentRequirements) ([]byte, int, error) {
	data, err := json.Marshal(request{
		X402Version:         paygate.X402Version,
		PaymentPayload:      payment,
		PaymentRequirements: requirement,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Use the provided context, applying the operation timeout only if no
	// deadline is already set.
	reqCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Authorization != "" {
		httpReq.Header.Set("Authorization", c.Authorization)
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: paygate.DefaultTimeouts.RequestTimeout}
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", paygate.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading response: %v", paygate.ErrFacilitatorUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

// rejectionReason formats a non-2xx facilitator response into a reason
// string, preferring the facilitator's own invalidReason/errorReason field.
func rejectionReason(op string, status int, body []byte) string {
	var errBody map[string]interface{}
	if err := json.Unmarshal(body, &errBody); err == nil {
		if reason, ok := errBody["invalidReason"].(string); ok && reason != "" {
			return fmt.Sprintf("%s returned status %d: %s", op, status, reason)
		}
		if reason, ok := errBody["errorReason"].(string); ok && reason != "" {
			return fmt.Sprintf("%s returned status %d: %s", op, status, reason)
		}
		if reason, ok := errBody["error"].(string); ok && reason != "" {
			return fmt.Sprintf("%s returned status %d: %s", op, status, reason)
		}
	}
	if len(body) > 0 {
		return fmt.Sprintf("%s returned status %d: %s", op, status, string(body))
	}
	return fmt.Sprintf("%s returned status %d", op, status)
}
