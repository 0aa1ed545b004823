package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentpay/paygate"
	"github.com/agentpay/paygate/chain"
	"github.com/agentpay/paygate/encoding"
	gatewayhttp "github.com/agentpay/paygate/http"
)

type staticFacilitator struct {
	verify *paygate.VerifyResponse
	settle *paygate.SettleResponse
}

func (f *staticFacilitator) Verify(context.Context, paygate.PaymentPayload, paygate.PaymentRequirements) (*paygate.VerifyResponse, error) {
	return f.verify, nil
}

func (f *staticFacilitator) Settle(context.Context, paygate.PaymentPayload, paygate.PaymentRequirements) (*paygate.SettleResponse, error) {
	return f.settle, nil
}

// recordingHandler remembers whether it ran and what body it received.
type recordingHandler struct {
	called bool
	body   string
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	data, _ := io.ReadAll(r.Body)
	h.body = string(data)
	w.WriteHeader(http.StatusOK)
}

func newTestHandler(t *testing.T, fac *staticFacilitator) (*Handler, *recordingHandler, *chain.StaticClient) {
	t.Helper()

	catalog := paygate.NewStaticCatalog(&paygate.ResourceDescriptor{
		ID:      "weather",
		PayTo:   "0xMerchant",
		Price:   big.NewInt(1000),
		Network: "base-sepolia",
	})
	escrow := chain.NewStaticClient()

	gw, err := gatewayhttp.NewGateway(gatewayhttp.Config{
		Catalog:     catalog,
		Facilitator: fac,
		Chain:       escrow,
		Replay:      paygate.NewMemoryReplayGuard(),
		Ledger:      paygate.NewMemoryLedger(),
		BaseOrigin:  "https://mcp.example.com",
		ServiceID:   "mcp-1",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	next := &recordingHandler{}
	handler := NewHandler(gw, next, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return handler, next, escrow
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Error   *rpcError       `json:"error"`
	Result  json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeRPC(t *testing.T, w *httptest.ResponseRecorder) rpcResponse {
	t.Helper()
	var resp rpcResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHandlerPassesNonPOST(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))

	if !next.called {
		t.Error("GET request did not pass through")
	}
}

func TestHandlerPassesProtocolMethods(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))

	if !next.called {
		t.Fatal("initialize did not pass through")
	}
	if next.body != body {
		t.Errorf("next saw body %q, want original", next.body)
	}
}

func TestHandlerPassesUncatalogedTools(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	body := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"free_tool"}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))

	if !next.called {
		t.Error("uncataloged tool call did not pass through")
	}
}

func TestHandlerChallengesMonetizedTool(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	body := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"weather"}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))

	if next.called {
		t.Fatal("unpaid tool call passed through")
	}
	// JSON-RPC errors travel in a 200 response.
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	resp := decodeRPC(t, w)
	if resp.Error == nil || resp.Error.Code != 402 {
		t.Fatalf("error = %+v, want code 402", resp.Error)
	}

	var challenge paygate.PaymentRequired
	if err := json.Unmarshal(resp.Error.Data, &challenge); err != nil {
		t.Fatalf("decoding challenge data: %v", err)
	}
	if len(challenge.Accepts) != 1 || challenge.Accepts[0].MaxAmountRequired != "1000" {
		t.Errorf("challenge = %+v", challenge)
	}
}

func TestHandlerAdmitsEscrowedToolCall(t *testing.T) {
	handler, next, escrow := newTestHandler(t, &staticFacilitator{})
	escrow.Add("cred-1", chain.Payment{Valid: true, Payer: "0xBob", Amount: big.NewInt(1500)})

	body := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"weather"}}`
	r := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	r.Header.Set(gatewayhttp.HeaderPaymentID, "cred-1")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if !next.called {
		t.Fatalf("admitted tool call did not reach the server: %s", w.Body.String())
	}
	if next.body != body {
		t.Errorf("next saw body %q, want original restored", next.body)
	}
}

func TestHandlerSetsSettlementHeader(t *testing.T) {
	fac := &staticFacilitator{
		verify: &paygate.VerifyResponse{IsValid: true, Payer: "0xAlice"},
		settle: &paygate.SettleResponse{Success: true, TxHash: "0xabc"},
	}
	handler, next, _ := newTestHandler(t, fac)

	payment, err := encoding.EncodePayment(paygate.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base-sepolia",
		Payload:     map[string]interface{}{"from": "0xAlice"},
	})
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}

	body := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"weather"}}`
	r := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	r.Header.Set(gatewayhttp.HeaderPayment, payment)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if !next.called {
		t.Fatalf("settled tool call did not reach the server: %s", w.Body.String())
	}
	if got := w.Header().Get(gatewayhttp.HeaderPaymentResponse); got != "0xabc" {
		t.Errorf("X-PAYMENT-RESPONSE = %q, want 0xabc", got)
	}
}

func TestHandlerRejectsReplayedToolCall(t *testing.T) {
	handler, _, escrow := newTestHandler(t, &staticFacilitator{})
	escrow.Add("cred-1", chain.Payment{Valid: true, Payer: "0xBob", Amount: big.NewInt(1500)})

	body := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"weather"}}`
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
		r.Header.Set(gatewayhttp.HeaderPaymentID, "cred-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		if i == 0 {
			continue
		}
		resp := decodeRPC(t, w)
		if resp.Error == nil || resp.Error.Code != 402 {
			t.Fatalf("replay error = %+v, want code 402", resp.Error)
		}
		var data struct {
			Code paygate.ErrorCode `json:"code"`
		}
		if err := json.Unmarshal(resp.Error.Data, &data); err != nil {
			t.Fatalf("decoding error data: %v", err)
		}
		if data.Code != paygate.CodeReplayedCredential {
			t.Errorf("code = %q, want REPLAYED_CREDENTIAL", data.Code)
		}
	}
}

func TestHandlerParseError(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader("{{{")))

	if next.called {
		t.Error("unparseable request passed through")
	}
	resp := decodeRPC(t, w)
	if resp.Error == nil || resp.Error.Code != -32700 {
		t.Errorf("error = %+v, want code -32700", resp.Error)
	}
}

func TestHandlerInvalidToolParams(t *testing.T) {
	handler, next, _ := newTestHandler(t, &staticFacilitator{})

	body := `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{}}`
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", strings.NewReader(body)))

	if next.called {
		t.Error("tool call without a name passed through")
	}
	resp := decodeRPC(t, w)
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("error = %+v, want code -32602", resp.Error)
	}
}
