package gemini

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoJSONObject reports that the model's free-text reply held no {...}
	// object to extract. The caller must treat this as a failed analysis,
	// never as a partially-filled result.
	ErrNoJSONObject = errors.New("no JSON object found in model response")

	// ErrEmptyResponse reports that the model returned no text at all.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrMalformedAnalysis reports that an object was found but did not
	// decode into the expected shape.
	ErrMalformedAnalysis = errors.New("malformed analysis object")
)

// PlantIdentification names the plant in the image.
type PlantIdentification struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// HealthAssessment describes the plant's condition.
type HealthAssessment struct {
	Healthy     bool    `json:"healthy"`
	Disease     string  `json:"disease"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// CareRecommendation carries treatment advice and product suggestions.
type CareRecommendation struct {
	Cure     string   `json:"cure"`
	Products []string `json:"products"`
}

// AnalysisResult is the structured record parsed out of the generative
// model's reply.
type AnalysisResult struct {
	Plant  PlantIdentification `json:"plant"`
	Health HealthAssessment    `json:"health"`
	Care   CareRecommendation  `json:"care"`
}

// ParseAnalysis extracts the first {...} JSON object embedded in the raw
// model text and decodes it. The reply is conversational text, not a clean
// API payload, so the object has to be cut out of the surrounding prose.
func ParseAnalysis(raw string) (*AnalysisResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONObject
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}

	if result.Plant.Name == "" && result.Health.Disease == "" {
		return nil, fmt.Errorf("%w: missing plant identification and health status", ErrMalformedAnalysis)
	}

	return &result, nil
}

// DecodeInlineImage decodes a base64 image payload, tolerating a data-URL
// prefix (`data:image/jpeg;base64,...`) as produced by browser file readers.
func DecodeInlineImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, "base64,"); strings.HasPrefix(encoded, "data:") && idx != -1 {
		encoded = encoded[idx+len("base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image payload")
	}
	return data, nil
}
