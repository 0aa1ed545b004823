// Package http implements the payment admission gateway as stdlib HTTP
// middleware. It classifies inbound requests, issues 402 challenges, and
// dispatches presented credentials to the facilitator or the on-chain
// escrow ledger before admitting the request to the protected handler.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/agentpay/paygate"
	"github.com/agentpay/paygate/chain"
	"github.com/agentpay/paygate/facilitator"
)

// Credential headers read from paid requests, and response headers written
// by the gateway.
const (
	// HeaderPayment carries a base64 JSON signed payment authorization.
	HeaderPayment = "X-PAYMENT"

	// HeaderPaymentID carries an opaque on-chain credential identifier.
	HeaderPaymentID = "X-PAYMENT-ID"

	// HeaderPaymentResponse carries the base64 settlement acknowledgement.
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"

	// HeaderPaymentRequired carries the base64 402 challenge body.
	HeaderPaymentRequired = "PAYMENT-REQUIRED"
)

// Config holds the collaborators and policy of an admission gateway.
type Config struct {
	// Catalog resolves resource descriptors by id. Required.
	Catalog paygate.Catalog

	// Facilitator verifies and settles off-chain authorizations. Required.
	Facilitator facilitator.Facilitator

	// Chain reads escrowed on-chain payments. Required.
	Chain chain.Client

	// Replay tracks consumed on-chain credentials. Required.
	Replay paygate.ReplayGuard

	// Ledger records admitted payments. Required.
	Ledger paygate.Ledger

	// Classifier decides which requests are free. If nil, the default
	// allow-lists are used.
	Classifier *paygate.Classifier

	// BaseOrigin is the absolute origin used to resolve relative request
	// URLs into the requirement's resource URL (e.g., "https://api.example.com").
	BaseOrigin string

	// ServiceID identifies this gateway deployment in challenges.
	ServiceID string

	// GatewayContract is the escrow contract address advertised in challenges.
	GatewayContract string

	// RoutePrefix is the path prefix resource ids are extracted from.
	// Defaults to "/proxy/". Ignored when ResolveResource is set.
	RoutePrefix string

	// ResolveResource optionally overrides route-based resource resolution.
	// Returning "" rejects the request as a bad route.
	ResolveResource func(*http.Request) string

	// Logger receives structured admission logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Gateway is the payment admission state machine. One Gateway serves
// concurrent requests; the replay guard is the only shared mutable state.
type Gateway struct {
	catalog         paygate.Catalog
	facilitator     facilitator.Facilitator
	chain           chain.Client
	replay          paygate.ReplayGuard
	ledger          paygate.Ledger
	classifier      *paygate.Classifier
	builder         *paygate.RequirementsBuilder
	serviceID       string
	gatewayContract string
	routePrefix     string
	resolveResource func(*http.Request) string
	logger          *slog.Logger
}

// NewGateway validates the configuration and creates a Gateway.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("paygate: gateway requires a catalog")
	}
	if cfg.Facilitator == nil {
		return nil, errors.New("paygate: gateway requires a facilitator client")
	}
	if cfg.Chain == nil {
		return nil, errors.New("paygate: gateway requires a chain client")
	}
	if cfg.Replay == nil {
		return nil, errors.New("paygate: gateway requires a replay guard")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("paygate: gateway requires an audit ledger")
	}

	builder, err := paygate.NewRequirementsBuilder(cfg.BaseOrigin)
	if err != nil {
		return nil, err
	}

	classifier := cfg.Classifier
	if classifier == nil {
		classifier = paygate.NewClassifier()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.RoutePrefix
	if prefix == "" {
		prefix = "/proxy/"
	}

	return &Gateway{
		catalog:         cfg.Catalog,
		facilitator:     cfg.Facilitator,
		chain:           cfg.Chain,
		replay:          cfg.Replay,
		ledger:          cfg.Ledger,
		classifier:      classifier,
		builder:         builder,
		serviceID:       cfg.ServiceID,
		gatewayContract: cfg.GatewayContract,
		routePrefix:     prefix,
		resolveResource: cfg.ResolveResource,
		logger:          logger,
	}, nil
}

// Catalog returns the gateway's resource catalog.
func (g *Gateway) Catalog() paygate.Catalog {
	return g.catalog
}

// Admission is the successful outcome of a paid request: the audit record
// that was appended and, for off-chain payments, the settlement response.
type Admission struct {
	// Record is the appended audit record.
	Record *paygate.AuditRecord

	// Settlement is the facilitator settlement, off-chain path only.
	Settlement *paygate.SettleResponse

	// Requirement is the payment requirement the credential satisfied.
	Requirement paygate.PaymentRequirements
}

// Decision is the outcome of evaluating a paid request. Exactly one of
// Admission, Challenge, and Err is non-nil.
type Decision struct {
	// Admission is set when the request is admitted.
	Admission *Admission

	// Challenge is set when no credential was presented.
	Challenge *paygate.PaymentRequired

	// Err is set when the credential was rejected.
	Err *paygate.AdmissionError
}

// Evaluate runs the admission state machine for a paid request against the
// named resource. It does not write to the response; transport front-ends
// (HTTP middleware, the MCP handler) translate the Decision themselves.
func (g *Gateway) Evaluate(r *http.Request, resourceID string) Decision {
	logger := g.logger.With("resource", resourceID, "path", r.URL.Path)

	resource, ok := g.catalog.Get(resourceID)
	if !ok {
		return Decision{Err: paygate.NewAdmissionError(paygate.CodeResourceNotFound,
			"unknown resource "+resourceID, paygate.ErrResourceNotFound)}
	}

	requirement, err := g.builder.Build(resource, r.URL.RequestURI())
	if err != nil {
		if errors.Is(err, paygate.ErrNoBaseOrigin) {
			return Decision{Err: paygate.NewAdmissionError(paygate.CodeConfiguration,
				"cannot build absolute resource URL", err)}
		}
		return Decision{Err: paygate.NewAdmissionError(paygate.CodeBadRequest,
			"malformed request URL", err)}
	}

	// Select the verification path by credential presence. When both
	// headers are present the off-chain authorization is attempted first.
	var v verifier
	switch {
	case r.Header.Get(HeaderPayment) != "":
		v = &offChainVerifier{
			header:      r.Header.Get(HeaderPayment),
			facilitator: g.facilitator,
			logger:      logger,
		}
	case r.Header.Get(HeaderPaymentID) != "":
		v = &onChainVerifier{
			credentialID: r.Header.Get(HeaderPaymentID),
			chain:        g.chain,
			replay:       g.replay,
			logger:       logger,
		}
	default:
		logger.Info("no payment credential presented, issuing challenge")
		return Decision{Challenge: g.challenge(requirement)}
	}

	admission, admErr := v.admit(r.Context(), resource, requirement)
	if admErr != nil {
		logger.Warn("payment rejected", "code", admErr.Code, "error", admErr.Message)
		return Decision{Err: admErr}
	}

	// Settlement already happened for off-chain payments; an audit append
	// failure at this point is logged but does not reject the admitted
	// request. Exactly-once across settlement and audit would need
	// idempotent appends keyed by the settlement transaction.
	if err := g.ledger.Append(r.Context(), admission.Record); err != nil {
		logger.Error("audit append failed for admitted payment",
			"record", admission.Record.ID, "error", err)
	}

	admission.Requirement = requirement
	logger.Info("payment admitted",
		"method", admission.Record.Method,
		"payer", admission.Record.Payer,
		"amount", admission.Record.Amount)
	return Decision{Admission: admission}
}

// challenge builds the 402 body for a request with no credential.
func (g *Gateway) challenge(requirement paygate.PaymentRequirements) *paygate.PaymentRequired {
	return &paygate.PaymentRequired{
		X402Version:     paygate.X402Version,
		Error:           "Payment required",
		Accepts:         []paygate.PaymentRequirements{requirement},
		GatewayContract: g.gatewayContract,
		ServiceID:       g.serviceID,
	}
}

// resourceID extracts the resource id from the request route.
func (g *Gateway) resourceID(r *http.Request) string {
	if g.resolveResource != nil {
		return g.resolveResource(r)
	}
	rest, ok := strings.CutPrefix(r.URL.Path, g.routePrefix)
	if !ok || rest == "" {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// Middleware wraps next with payment admission. Free requests pass through
// untouched; paid requests are admitted, challenged, or rejected per the
// Decision. Admitted requests carry the Admission in their context.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2, proceed := g.Admit(w, r)
		if !proceed {
			return
		}
		next.ServeHTTP(w, r2)
	})
}

// Admit evaluates the request and writes any challenge or rejection to w.
// It returns the request (with admission context attached when paid) and
// whether the caller should proceed to the protected handler.
func (g *Gateway) Admit(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	if g.classifier.Free(r) {
		return r, true
	}

	resourceID := g.resourceID(r)
	if resourceID == "" {
		writeError(w, paygate.NewAdmissionError(paygate.CodeBadRequest,
			"request route does not name a resource", nil))
		return r, false
	}

	decision := g.Evaluate(r, resourceID)
	switch {
	case decision.Err != nil:
		writeError(w, decision.Err)
		return r, false
	case decision.Challenge != nil:
		if err := writeChallenge(w, decision.Challenge); err != nil {
			g.logger.Error("failed to write payment challenge", "error", err)
		}
		return r, false
	default:
		if decision.Admission.Settlement != nil {
			if err := setPaymentResponseHeader(w, decision.Admission.Settlement); err != nil {
				g.logger.Warn("failed to set payment response header", "error", err)
			}
		}
		ctx := context.WithValue(r.Context(), AdmissionContextKey, decision.Admission)
		return r.WithContext(ctx), true
	}
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// AdmissionContextKey is the context key for the request's Admission.
const AdmissionContextKey = contextKey("paygate_admission")

// GetAdmissionFromContext extracts the admission from a request context.
// Returns nil for free requests and contexts without an admission.
func GetAdmissionFromContext(ctx context.Context) *Admission {
	value := ctx.Value(AdmissionContextKey)
	if value == nil {
		return nil
	}
	admission, ok := value.(*Admission)
	if !ok {
		return nil
	}
	return admission
}
