// Package encoding provides base64/JSON codecs for x402 payment data
// carried in HTTP headers: the X-PAYMENT credential, the PAYMENT-REQUIRED
// challenge, and the X-PAYMENT-RESPONSE settlement acknowledgement.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/agentpay/paygate"
)

// EncodePayment converts a PaymentPayload to a base64-encoded JSON string
// for the X-PAYMENT header.
//
// Returns an error if JSON marshaling fails.
func EncodePayment(payment paygate.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts a base64-encoded JSON string to a PaymentPayload.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodePayment(encoded string) (paygate.PaymentPayload, error) {
	var payment paygate.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("failed to unmarshal payment: %w", err)
	}

	return payment, nil
}

// EncodeChallenge converts a PaymentRequired challenge to a base64-encoded
// JSON string for the PAYMENT-REQUIRED header.
//
// Returns an error if JSON marshaling fails.
func EncodeChallenge(challenge paygate.PaymentRequired) (string, error) {
	challengeJSON, err := json.Marshal(challenge)
	if err != nil {
		return "", fmt.Errorf("failed to marshal challenge: %w", err)
	}
	return base64.StdEncoding.EncodeToString(challengeJSON), nil
}

// DecodeChallenge converts a base64-encoded JSON string to a PaymentRequired.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodeChallenge(encoded string) (paygate.PaymentRequired, error) {
	var challenge paygate.PaymentRequired

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return challenge, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &challenge); err != nil {
		return challenge, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return challenge, nil
}

// EncodeSettlement converts a SettleResponse to a base64-encoded JSON string
// for the X-PAYMENT-RESPONSE header.
//
// Returns an error if JSON marshaling fails.
func EncodeSettlement(settlement paygate.SettleResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts a base64-encoded JSON string to a SettleResponse.
//
// Returns an error if base64 decoding or JSON unmarshaling fails.
func DecodeSettlement(encoded string) (paygate.SettleResponse, error) {
	var settlement paygate.SettleResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("failed to unmarshal settlement: %w", err)
	}

	return settlement, nil
}
