// Package paygate implements an x402 payment admission gateway for
// machine-callable API resources.
//
// The gateway fronts paid resources with the HTTP 402 challenge/response
// protocol. Callers either present a signed off-chain payment authorization
// in the X-PAYMENT header, verified and settled through a facilitator
// service, or reference a payment already escrowed on-chain via the
// X-PAYMENT-ID header. Requests without a credential receive a 402 response
// describing the accepted payment.
package paygate

import "math/big"

// Protocol version constant
const X402Version = 1

// Sentinel payer identity used when a decoded authorization carries no
// recognizable payer address.
const UnknownPayer = "unknown"

// PaymentRequirements defines a single acceptable payment option.
// This is an element in the "accepts" array of PaymentRequired.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier (e.g., "base-sepolia").
	Network string `json:"network"`

	// MaxAmountRequired is the price in atomic units as a decimal string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the absolute URL of the protected resource.
	Resource string `json:"resource"`

	// Description is a human-readable description of the resource.
	Description string `json:"description"`

	// MimeType is the content type of the protected resource.
	MimeType string `json:"mimeType,omitempty"`

	// PayTo is the recipient address for the payment.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds is the validity period for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Asset is the token contract address of the settlement asset.
	Asset string `json:"asset"`

	// Extra contains scheme-specific additional data (e.g., asset name and
	// EIP-712 version for the "exact" scheme).
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequired is the 402 challenge body sent to callers that presented
// no payment credential. The same JSON document is attached, base64-encoded,
// as the PAYMENT-REQUIRED response header for programmatic clients.
type PaymentRequired struct {
	// X402Version is the protocol version (1).
	X402Version int `json:"x402Version"`

	// Error is a human-readable error message.
	Error string `json:"error,omitempty"`

	// Accepts is an array of payment options the gateway will accept.
	Accepts []PaymentRequirements `json:"accepts"`

	// GatewayContract is the address of the on-chain payment gateway that
	// escrows X-PAYMENT-ID payments.
	GatewayContract string `json:"gatewayContract,omitempty"`

	// ServiceID identifies the gateway deployment issuing the challenge.
	ServiceID string `json:"serviceId,omitempty"`
}

// PaymentPayload is the decoded X-PAYMENT header: a signed off-chain payment
// authorization to be verified and settled by the facilitator.
type PaymentPayload struct {
	// X402Version is the protocol version (1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network is the blockchain network identifier.
	Network string `json:"network"`

	// Payload contains the scheme-specific signed payment data. For the
	// "exact" scheme this is a signature plus an EIP-3009 authorization.
	Payload map[string]interface{} `json:"payload"`
}

// Payer extracts the payer address from the authorization payload.
// Returns UnknownPayer if the payload carries no "from" address.
func (p *PaymentPayload) Payer() string {
	if p == nil || p.Payload == nil {
		return UnknownPayer
	}
	if auth, ok := p.Payload["authorization"].(map[string]interface{}); ok {
		if from, ok := auth["from"].(string); ok && from != "" {
			return from
		}
	}
	// Some facilitators flatten the authorization into the payload.
	if from, ok := p.Payload["from"].(string); ok && from != "" {
		return from
	}
	return UnknownPayer
}

// VerifyResponse is the facilitator's answer to a verify call.
type VerifyResponse struct {
	// IsValid indicates whether the payment authorization is valid.
	IsValid bool `json:"isValid"`

	// InvalidReason provides a short error code if the payment is invalid.
	InvalidReason string `json:"invalidReason,omitempty"`

	// Payer is the address that signed the authorization.
	Payer string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to a settle call.
type SettleResponse struct {
	// Success indicates whether the payment was executed on-chain.
	Success bool `json:"success"`

	// Error provides a short error code if settlement failed.
	Error string `json:"error,omitempty"`

	// TxHash is the settlement transaction reference.
	TxHash string `json:"txHash,omitempty"`

	// NetworkID is the network the payment was settled on.
	NetworkID string `json:"networkId,omitempty"`

	// Payer is the address that made the payment.
	Payer string `json:"payer,omitempty"`
}

// ParseAmount parses a decimal atomic-unit amount string into a *big.Int.
// Returns ErrInvalidAmount for empty, negative, or non-integer input.
func ParseAmount(amount string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok || value.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return value, nil
}
