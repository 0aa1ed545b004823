package http

import (
	"context"
	"log/slog"

	"github.com/agentpay/paygate"
	"github.com/agentpay/paygate/chain"
	"github.com/agentpay/paygate/encoding"
	"github.com/agentpay/paygate/facilitator"
)

// verifier is the per-request verification strategy, selected once by
// credential type. Either the whole path succeeds and yields an admission,
// or it fails with a terminal rejection; no partial progress consumes the
// credential or writes an audit record.
type verifier interface {
	admit(ctx context.Context, resource *paygate.ResourceDescriptor, requirement paygate.PaymentRequirements) (*Admission, *paygate.AdmissionError)
}

// offChainVerifier admits a signed authorization via the facilitator:
// decode, verify, settle.
type offChainVerifier struct {
	header      string
	facilitator facilitator.Facilitator
	logger      *slog.Logger
}

func (v *offChainVerifier) admit(ctx context.Context, resource *paygate.ResourceDescriptor, requirement paygate.PaymentRequirements) (*Admission, *paygate.AdmissionError) {
	payload, err := encoding.DecodePayment(v.header)
	if err != nil {
		return nil, paygate.NewAdmissionError(paygate.CodeMalformedCredential,
			"cannot decode X-PAYMENT header", paygate.ErrMalformedCredential).
			WithDetail("cause", err.Error())
	}

	verifyResp, err := v.facilitator.Verify(ctx, payload, requirement)
	if err != nil {
		return nil, paygate.NewAdmissionError(paygate.CodeUpstream,
			"facilitator verify failed", err)
	}
	if !verifyResp.IsValid {
		return nil, paygate.NewAdmissionError(paygate.CodeVerificationFailed,
			"payment authorization rejected", paygate.ErrVerificationFailed).
			WithDetail("reason", verifyResp.InvalidReason)
	}

	v.logger.Info("authorization verified, settling", "payer", verifyResp.Payer)

	settleResp, err := v.facilitator.Settle(ctx, payload, requirement)
	if err != nil {
		return nil, paygate.NewAdmissionError(paygate.CodeUpstream,
			"facilitator settle failed", err)
	}
	if !settleResp.Success {
		return nil, paygate.NewAdmissionError(paygate.CodeSettlementFailed,
			"payment settlement rejected", paygate.ErrSettlementFailed).
			WithDetail("reason", settleResp.Error)
	}

	payer := settleResp.Payer
	if payer == "" {
		payer = verifyResp.Payer
	}
	if payer == "" {
		payer = payload.Payer()
	}

	record := paygate.NewAuditRecord(resource.ID, payer, requirement.MaxAmountRequired,
		paygate.MethodOffChain, paygate.StatusSettled)
	record.TxHash = settleResp.TxHash

	return &Admission{Record: record, Settlement: settleResp}, nil
}

// onChainVerifier admits an escrow-referenced payment: replay check, ledger
// lookup, exact integer amount comparison, then atomic consumption.
type onChainVerifier struct {
	credentialID string
	chain        chain.Client
	replay       paygate.ReplayGuard
	logger       *slog.Logger
}

func (v *onChainVerifier) admit(ctx context.Context, resource *paygate.ResourceDescriptor, requirement paygate.PaymentRequirements) (*Admission, *paygate.AdmissionError) {
	if v.replay.Seen(v.credentialID) {
		return nil, replayed(v.credentialID)
	}

	payment, err := v.chain.Lookup(ctx, v.credentialID)
	if err != nil {
		return nil, paygate.NewAdmissionError(paygate.CodeUpstream,
			"escrow ledger lookup failed", err)
	}
	if !payment.Valid {
		return nil, paygate.NewAdmissionError(paygate.CodeVerificationFailed,
			"no escrowed payment for credential", paygate.ErrVerificationFailed).
			WithDetail("credentialId", v.credentialID)
	}

	// Exact integer comparison; overpayment is accepted, underpayment
	// leaves the credential unconsumed so a corrected resubmission can
	// succeed.
	if payment.Amount.Cmp(resource.Price) < 0 {
		return nil, paygate.NewAdmissionError(paygate.CodeInsufficientAmount,
			"escrowed amount below required price", paygate.ErrInsufficientAmount).
			WithDetail("required", resource.Price.String()).
			WithDetail("received", payment.Amount.String())
	}

	if !v.replay.MarkIfAbsent(v.credentialID) {
		// Lost the race to a concurrent request with the same credential.
		return nil, replayed(v.credentialID)
	}

	record := paygate.NewAuditRecord(resource.ID, payment.Payer, payment.Amount.String(),
		paygate.MethodOnChain, paygate.StatusVerified)
	record.CredentialID = v.credentialID

	return &Admission{Record: record}, nil
}

func replayed(credentialID string) *paygate.AdmissionError {
	return paygate.NewAdmissionError(paygate.CodeReplayedCredential,
		"payment credential already consumed", paygate.ErrReplayedCredential).
		WithDetail("credentialId", credentialID)
}
