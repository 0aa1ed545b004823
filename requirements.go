package paygate

import (
	"fmt"
	"net/url"
)

// Fixed requirement policy. Price may change between calls, so requirements
// are rebuilt per request and never cached.
const (
	// RequirementScheme is the only payment scheme the gateway issues.
	RequirementScheme = "exact"

	// RequirementTimeoutSeconds is the validity window for authorizations.
	RequirementTimeoutSeconds = 60
)

// RequirementsBuilder constructs PaymentRequirements from a resource
// descriptor and the raw request URL. A base origin is needed to resolve
// relative request URLs into the absolute resource URL the protocol requires.
type RequirementsBuilder struct {
	base *url.URL
}

// NewRequirementsBuilder creates a builder. baseOrigin may be empty, in
// which case only absolute request URLs can be built.
func NewRequirementsBuilder(baseOrigin string) (*RequirementsBuilder, error) {
	if baseOrigin == "" {
		return &RequirementsBuilder{}, nil
	}
	base, err := url.Parse(baseOrigin)
	if err != nil {
		return nil, fmt.Errorf("paygate: invalid base origin %q: %w", baseOrigin, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("paygate: base origin %q must be absolute", baseOrigin)
	}
	return &RequirementsBuilder{base: base}, nil
}

// Build returns the payment requirement for one call to the resource at
// rawURL. Returns ErrNoBaseOrigin if rawURL is relative and no base origin
// is configured.
func (b *RequirementsBuilder) Build(resource *ResourceDescriptor, rawURL string) (PaymentRequirements, error) {
	resourceURL, err := b.resolve(rawURL)
	if err != nil {
		return PaymentRequirements{}, err
	}

	req := PaymentRequirements{
		Scheme:            RequirementScheme,
		Network:           resource.Network,
		MaxAmountRequired: resource.Price.String(),
		Resource:          resourceURL,
		Description:       resource.Description,
		MimeType:          resource.MimeType,
		PayTo:             resource.PayTo,
		MaxTimeoutSeconds: RequirementTimeoutSeconds,
		Asset:             resource.Asset,
	}
	if resource.AssetName != "" || resource.AssetVersion != "" {
		req.Extra = map[string]interface{}{
			"name":    resource.AssetName,
			"version": resource.AssetVersion,
		}
	}
	return req, nil
}

// resolve turns a possibly-relative request URL into an absolute URL.
func (b *RequirementsBuilder) resolve(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("paygate: invalid resource URL %q: %w", rawURL, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if b.base == nil {
		return "", fmt.Errorf("%w: %q", ErrNoBaseOrigin, rawURL)
	}
	return b.base.ResolveReference(u).String(), nil
}
