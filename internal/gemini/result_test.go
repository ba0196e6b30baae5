package gemini

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestParseAnalysisExtractsEmbeddedObject(t *testing.T) {
	raw := "Sure! Here is the assessment you asked for:\n" +
		`{"plant": {"name": "Tomato", "confidence": 0.97},` +
		` "health": {"healthy": false, "disease": "Late blight", "description": "Dark lesions on leaf margins.", "confidence": 0.9},` +
		` "care": {"cure": "Remove affected leaves and apply copper fungicide.", "products": ["Copper fungicide", "Neem oil"]}}` +
		"\nLet me know if you need anything else."

	result, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result.Plant.Name != "Tomato" {
		t.Fatalf("unexpected plant name: %q", result.Plant.Name)
	}
	if result.Health.Healthy {
		t.Fatal("expected unhealthy assessment")
	}
	if result.Health.Disease != "Late blight" {
		t.Fatalf("unexpected disease: %q", result.Health.Disease)
	}
	if len(result.Care.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(result.Care.Products))
	}
}

func TestParseAnalysisRejectsTextWithoutObject(t *testing.T) {
	_, err := ParseAnalysis("I am sorry, I cannot identify this plant.")
	if !errors.Is(err, ErrNoJSONObject) {
		t.Fatalf("expected ErrNoJSONObject, got %v", err)
	}
}

func TestParseAnalysisRejectsEmptyText(t *testing.T) {
	_, err := ParseAnalysis("   \n")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestParseAnalysisRejectsMalformedObject(t *testing.T) {
	_, err := ParseAnalysis(`prefix {"plant": {"name": "Tomato", } broken`)
	if !errors.Is(err, ErrMalformedAnalysis) {
		t.Fatalf("expected ErrMalformedAnalysis, got %v", err)
	}
}

func TestParseAnalysisRejectsEmptyIdentification(t *testing.T) {
	_, err := ParseAnalysis(`{"plant": {"name": ""}, "health": {"disease": ""}}`)
	if !errors.Is(err, ErrMalformedAnalysis) {
		t.Fatalf("expected ErrMalformedAnalysis, got %v", err)
	}
}

func TestDecodeInlineImageStripsDataURLPrefix(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	decoded, err := DecodeInlineImage(encoded)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if len(decoded) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(decoded))
	}
	for i := range payload {
		if decoded[i] != payload[i] {
			t.Fatalf("byte %d mismatch: %x != %x", i, decoded[i], payload[i])
		}
	}
}

func TestDecodeInlineImageAcceptsBarePayload(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("leaf"))

	decoded, err := DecodeInlineImage(encoded)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if string(decoded) != "leaf" {
		t.Fatalf("unexpected payload: %q", decoded)
	}
}

func TestDecodeInlineImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeInlineImage("not base64!!"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
