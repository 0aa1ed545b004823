package encoding

import (
	"strings"
	"testing"

	"github.com/agentpay/paygate"
)

func TestPaymentRoundTrip(t *testing.T) {
	payment := paygate.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base-sepolia",
		Payload: map[string]interface{}{
			"signature": "0xdeadbeef",
			"authorization": map[string]interface{}{
				"from":  "0xAlice",
				"to":    "0xMerchant",
				"value": "1000",
			},
		},
	}

	encoded, err := EncodePayment(payment)
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}

	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment: %v", err)
	}
	if decoded.Scheme != "exact" || decoded.Network != "base-sepolia" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Payer() != "0xAlice" {
		t.Errorf("Payer() = %q, want 0xAlice", decoded.Payer())
	}
}

func TestDecodePaymentInvalidBase64(t *testing.T) {
	_, err := DecodePayment("!!!not-base64!!!")
	if err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if !strings.Contains(err.Error(), "failed to decode base64") {
		t.Errorf("error = %v", err)
	}
}

func TestDecodePaymentInvalidJSON(t *testing.T) {
	// "bm90IGpzb24=" is base64 for "not json".
	_, err := DecodePayment("bm90IGpzb24=")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "failed to unmarshal payment") {
		t.Errorf("error = %v", err)
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	challenge := paygate.PaymentRequired{
		X402Version: 1,
		Error:       "Payment required",
		Accepts: []paygate.PaymentRequirements{{
			Scheme:            "exact",
			Network:           "base-sepolia",
			MaxAmountRequired: "1000",
			Resource:          "https://api.example.com/proxy/weather",
			PayTo:             "0xMerchant",
			MaxTimeoutSeconds: 60,
		}},
		GatewayContract: "0xGateway",
		ServiceID:       "svc-1",
	}

	encoded, err := EncodeChallenge(challenge)
	if err != nil {
		t.Fatalf("EncodeChallenge: %v", err)
	}
	decoded, err := DecodeChallenge(encoded)
	if err != nil {
		t.Fatalf("DecodeChallenge: %v", err)
	}

	if len(decoded.Accepts) != 1 {
		t.Fatalf("len(Accepts) = %d, want 1", len(decoded.Accepts))
	}
	if decoded.Accepts[0].MaxAmountRequired != "1000" {
		t.Errorf("MaxAmountRequired = %q", decoded.Accepts[0].MaxAmountRequired)
	}
	if decoded.GatewayContract != "0xGateway" || decoded.ServiceID != "svc-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestSettlementRoundTrip(t *testing.T) {
	encoded, err := EncodeSettlement(paygate.SettleResponse{
		Success:   true,
		TxHash:    "0xabc",
		NetworkID: "base-sepolia",
		Payer:     "0xAlice",
	})
	if err != nil {
		t.Fatalf("EncodeSettlement: %v", err)
	}

	decoded, err := DecodeSettlement(encoded)
	if err != nil {
		t.Fatalf("DecodeSettlement: %v", err)
	}
	if !decoded.Success || decoded.TxHash != "0xabc" {
		t.Errorf("decoded = %+v", decoded)
	}
}
