package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentpay/paygate"
	"github.com/agentpay/paygate/encoding"
)

// errorBody is the structured JSON rejection sent to callers.
type errorBody struct {
	X402Version int                    `json:"x402Version"`
	Error       string                 `json:"error"`
	Code        paygate.ErrorCode      `json:"code"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// writeError writes a terminal rejection with the status mapped from the
// error code.
func writeError(w http.ResponseWriter, admErr *paygate.AdmissionError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(admErr.Code.HTTPStatus())
	_ = json.NewEncoder(w).Encode(errorBody{
		X402Version: paygate.X402Version,
		Error:       admErr.Message,
		Code:        admErr.Code,
		Details:     admErr.Details,
	})
}

// writeChallenge writes the 402 challenge: the JSON body plus the same
// document base64-encoded in the PAYMENT-REQUIRED header for programmatic
// clients.
func writeChallenge(w http.ResponseWriter, challenge *paygate.PaymentRequired) error {
	encoded, err := encoding.EncodeChallenge(*challenge)
	if err != nil {
		return fmt.Errorf("encoding challenge header: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderPaymentRequired, encoded)
	w.WriteHeader(http.StatusPaymentRequired)
	if err := json.NewEncoder(w).Encode(challenge); err != nil {
		return fmt.Errorf("encoding challenge body: %w", err)
	}
	return nil
}

// setPaymentResponseHeader attaches the settlement acknowledgement, the
// facilitator's transaction reference, to the response.
func setPaymentResponseHeader(w http.ResponseWriter, settlement *paygate.SettleResponse) error {
	if settlement.TxHash == "" {
		return fmt.Errorf("settlement has no transaction reference")
	}
	w.Header().Set(HeaderPaymentResponse, settlement.TxHash)
	return nil
}
