package handlers

import (
	"testing"

	"github.com/promptpit/promptpit/internal/models"
)

func TestProviderWithModels(t *testing.T) {
	p := &models.Provider{ID: 1, Name: "openai", IsActive: true}

	body := providerWithModels(p, 42)

	if body["provider"] != p {
		t.Error("response should carry the stored provider")
	}
	refreshed, ok := body["models_refreshed"]
	if !ok {
		t.Fatal("response missing models_refreshed")
	}
	if refreshed != 42 {
		t.Errorf("models_refreshed = %v, want 42", refreshed)
	}
}
