package gemini

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/example/leaf-check/internal/logging"
)

// analysisPrompt forces the model to embed a machine-readable object in its
// reply. The schema mirrors AnalysisResult.
const analysisPrompt = `You are a plant pathologist. Analyze the attached leaf photo.
Respond with a single JSON object of this exact shape, and nothing else:
{
  "plant": {"name": "<common plant name>", "confidence": <0..1>},
  "health": {"healthy": <true|false>, "disease": "<disease name or empty>", "description": "<short description>", "confidence": <0..1>},
  "care": {"cure": "<treatment advice>", "products": ["<recommended product or type>", ...]}
}
If the plant is healthy, set disease to an empty string and products to general care items.`

// Analyzer can analyze a leaf image and produce a structured assessment.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageBytes []byte, mimeType string) (*AnalysisResult, error)
}

// Client calls the Gemini API and normalizes its free-text reply.
type Client struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewClient builds a Gemini-backed analyzer authenticated with an API key.
func NewClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, logging.NewOperationError("gemini.new_client", "", err)
	}
	return NewClientFromGenAI(client, model, logger), nil
}

// NewClientFromGenAI wraps an already-configured genai client.
func NewClientFromGenAI(c *genai.Client, model string, logger *zap.Logger) *Client {
	return &Client{
		client: c,
		model:  model,
		logger: logger.Named("gemini"),
	}
}

// AnalyzeImage sends the prompt plus inline image bytes to the model and
// parses the embedded JSON object out of the reply.
func (c *Client) AnalyzeImage(ctx context.Context, imageBytes []byte, mimeType string) (*AnalysisResult, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(analysisPrompt),
		genai.NewPartFromBytes(imageBytes, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		wrapped := logging.NewOperationError("gemini.generate_content", "", err)
		c.logger.Error("generation failed", zap.Error(wrapped), zap.String("model", c.model))
		return nil, wrapped
	}

	result, err := ParseAnalysis(resp.Text())
	if err != nil {
		wrapped := logging.NewOperationError("gemini.parse_analysis", "", err)
		c.logger.Warn("model reply was not parseable", zap.Error(wrapped))
		return nil, wrapped
	}

	return result, nil
}
