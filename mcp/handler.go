// Package mcp provides a payment-gated front-end for MCP servers.
// Tool calls against monetized tools are admitted through the same
// facilitator/escrow state machine as HTTP resources; protocol methods like
// initialize and tools/list pass through free.
package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/agentpay/paygate"
	gatewayhttp "github.com/agentpay/paygate/http"
)

// JSON-RPC error codes used by the handler.
const (
	codeParseError    = -32700
	codeInvalidParams = -32602
	codeInternalError = -32603
	codePaymentDenied = 402
)

// Handler wraps an MCP HTTP handler and gates tools/call requests on
// payment. The tool name doubles as the resource id; tools not present in
// the gateway's catalog are free.
type Handler struct {
	next    http.Handler
	gateway *gatewayhttp.Gateway
	logger  *slog.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithLogger sets the handler's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a payment-gating front-end for next.
func NewHandler(gateway *gatewayhttp.Gateway, next http.Handler, opts ...HandlerOption) *Handler {
	h := &Handler{
		next:    next,
		gateway: gateway,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP intercepts JSON-RPC tool calls and runs payment admission.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only POST carries JSON-RPC calls.
	if r.Method != http.MethodPost {
		h.next.ServeHTTP(w, r)
		return
	}

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeRPCError(w, nil, codeParseError, "Parse error", nil)
		return
	}
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var rpcReq struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      interface{}     `json:"id"`
	}
	if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil {
		h.writeRPCError(w, nil, codeParseError, "Parse error", nil)
		return
	}

	// Protocol methods (initialize, tools/list, ...) are free.
	if rpcReq.Method != "tools/call" {
		h.next.ServeHTTP(w, r)
		return
	}

	var toolParams struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(rpcReq.Params, &toolParams); err != nil || toolParams.Name == "" {
		h.writeRPCError(w, rpcReq.ID, codeInvalidParams, "Invalid params", nil)
		return
	}
	logger := h.logger.With("requestID", rpcReq.ID, "tool", toolParams.Name)

	// Tools outside the catalog are free.
	if _, monetized := h.gateway.Catalog().Get(toolParams.Name); !monetized {
		h.next.ServeHTTP(w, r)
		return
	}

	decision := h.gateway.Evaluate(r, toolParams.Name)
	switch {
	case decision.Challenge != nil:
		logger.Info("tool call requires payment")
		h.writeRPCError(w, rpcReq.ID, codePaymentDenied, "Payment required", decision.Challenge)
	case decision.Err != nil:
		h.writeDecisionError(w, rpcReq.ID, decision.Err, logger)
	default:
		if decision.Admission.Settlement != nil && decision.Admission.Settlement.TxHash != "" {
			w.Header().Set(gatewayhttp.HeaderPaymentResponse, decision.Admission.Settlement.TxHash)
		}
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		h.next.ServeHTTP(w, r)
	}
}

// writeDecisionError translates an admission rejection into a JSON-RPC error.
// Payment-level rejections use error code 402; upstream and internal
// failures use -32603.
func (h *Handler) writeDecisionError(w http.ResponseWriter, id interface{}, admErr *paygate.AdmissionError, logger *slog.Logger) {
	logger.Warn("tool call payment rejected", "code", admErr.Code, "error", admErr.Message)

	rpcCode := codePaymentDenied
	if admErr.Code.HTTPStatus() >= http.StatusInternalServerError {
		rpcCode = codeInternalError
	}

	data := map[string]interface{}{"code": admErr.Code}
	if admErr.Details != nil {
		data["details"] = admErr.Details
	}
	h.writeRPCError(w, id, rpcCode, admErr.Message, data)
}

// writeRPCError writes a JSON-RPC error response. JSON-RPC errors use HTTP
// status 200.
func (h *Handler) writeRPCError(w http.ResponseWriter, id interface{}, code int, message string, data interface{}) {
	errObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if data != nil {
		errObj["data"] = data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   errObj,
	})
}
