package paygate

import (
	"errors"
	"math/big"
	"testing"
)

func testResource() *ResourceDescriptor {
	return &ResourceDescriptor{
		ID:           "weather",
		Name:         "Weather Lookup",
		Description:  "Current weather for a location",
		PayTo:        "0x209693Bc6afc0C5328bA36FaF03C514EF312287C",
		Price:        big.NewInt(1000),
		Asset:        "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		AssetName:    "USDC",
		AssetVersion: "2",
		Network:      "base-sepolia",
		MimeType:     "application/json",
	}
}

func TestBuildRequirement(t *testing.T) {
	builder, err := NewRequirementsBuilder("https://api.example.com")
	if err != nil {
		t.Fatalf("NewRequirementsBuilder: %v", err)
	}

	req, err := builder.Build(testResource(), "/proxy/weather?city=Lisbon")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if req.Scheme != "exact" {
		t.Errorf("Scheme = %q, want exact", req.Scheme)
	}
	if req.MaxAmountRequired != "1000" {
		t.Errorf("MaxAmountRequired = %q, want 1000", req.MaxAmountRequired)
	}
	if req.Resource != "https://api.example.com/proxy/weather?city=Lisbon" {
		t.Errorf("Resource = %q, want absolute URL", req.Resource)
	}
	if req.MaxTimeoutSeconds != 60 {
		t.Errorf("MaxTimeoutSeconds = %d, want 60", req.MaxTimeoutSeconds)
	}
	if req.PayTo != "0x209693Bc6afc0C5328bA36FaF03C514EF312287C" {
		t.Errorf("PayTo = %q", req.PayTo)
	}
	if req.Extra["name"] != "USDC" || req.Extra["version"] != "2" {
		t.Errorf("Extra = %v, want asset name and version", req.Extra)
	}
}

func TestBuildAbsoluteURLPassesThrough(t *testing.T) {
	builder, err := NewRequirementsBuilder("")
	if err != nil {
		t.Fatalf("NewRequirementsBuilder: %v", err)
	}

	req, err := builder.Build(testResource(), "https://other.example.com/weather")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Resource != "https://other.example.com/weather" {
		t.Errorf("Resource = %q", req.Resource)
	}
}

func TestBuildRelativeWithoutBaseOrigin(t *testing.T) {
	builder, err := NewRequirementsBuilder("")
	if err != nil {
		t.Fatalf("NewRequirementsBuilder: %v", err)
	}

	_, err = builder.Build(testResource(), "/proxy/weather")
	if !errors.Is(err, ErrNoBaseOrigin) {
		t.Errorf("Build error = %v, want ErrNoBaseOrigin", err)
	}
}

func TestNewRequirementsBuilderRejectsRelativeOrigin(t *testing.T) {
	if _, err := NewRequirementsBuilder("api.example.com"); err == nil {
		t.Error("expected error for origin without scheme")
	}
}

func TestBuildOmitsExtraWithoutAssetMetadata(t *testing.T) {
	builder, err := NewRequirementsBuilder("https://api.example.com")
	if err != nil {
		t.Fatalf("NewRequirementsBuilder: %v", err)
	}

	resource := testResource()
	resource.AssetName = ""
	resource.AssetVersion = ""

	req, err := builder.Build(resource, "/proxy/weather")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Extra != nil {
		t.Errorf("Extra = %v, want nil", req.Extra)
	}
}
