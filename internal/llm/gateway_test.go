package llm

import (
	"testing"

	"github.com/promptpit/promptpit/internal/config"
)

func testGateway() Gateway {
	return NewGateway(config.LLMConfig{
		GroqBaseURL: "https://api.groq.com/openai/v1",
		MaxRetries:  2,
	})
}

func TestGatewayVendorSelection(t *testing.T) {
	g := testGateway()

	tests := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"groq", "groq"},
		{"anthropic", "anthropic"},
	}
	for _, tt := range tests {
		v, err := g.Vendor(Credential{Provider: tt.provider, APIKey: "sk-test"})
		if err != nil {
			t.Fatalf("Vendor(%q) error: %v", tt.provider, err)
		}
		if v.Name() != tt.wantName {
			t.Errorf("Vendor(%q).Name() = %q", tt.provider, v.Name())
		}
	}
}

func TestGatewayVendorRejectsUnknownProvider(t *testing.T) {
	g := testGateway()
	if _, err := g.Vendor(Credential{Provider: "cohere", APIKey: "sk-test"}); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestGatewayVendorRejectsMissingKey(t *testing.T) {
	g := testGateway()
	if _, err := g.Vendor(Credential{Provider: "openai"}); err == nil {
		t.Error("expected error when no API key is stored")
	}
}
