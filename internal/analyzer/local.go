package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/example/leaf-check/internal/logging"
)

// LocalPredictor is the local-classifier backend of the workflow.
type LocalPredictor interface {
	Predict(ctx context.Context, imageBytes []byte, filename, mimeType string) (string, error)
}

// LocalClient talks to the inference service over HTTP. The client carries a
// bounded timeout so a hung upstream cannot strand the workflow.
type LocalClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLocalClient builds a client for the inference service at baseURL.
func NewLocalClient(baseURL string, timeout time.Duration, logger *zap.Logger) *LocalClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LocalClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("local_client"),
	}
}

type predictionResponse struct {
	Prediction string `json:"prediction"`
}

// Predict uploads the image as the multipart field `file` and returns the
// bare label from the service's response.
func (c *LocalClient) Predict(ctx context.Context, imageBytes []byte, filename, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", logging.NewOperationError("local.build_request", "", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return "", logging.NewOperationError("local.build_request", "", err)
	}
	if err := writer.Close(); err != nil {
		return "", logging.NewOperationError("local.build_request", "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", body)
	if err != nil {
		return "", logging.NewOperationError("local.build_request", "", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		c.logger.Error("predict call failed", zap.Error(wrapped), zap.String("url", c.baseURL))
		return "", wrapped
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		wrapped := fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, bytes.TrimSpace(payload))
		c.logger.Warn("predict call rejected", zap.Int("status", resp.StatusCode))
		return "", wrapped
	}

	var prediction predictionResponse
	if err := json.Unmarshal(payload, &prediction); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnparseableResponse, err)
	}
	if prediction.Prediction == "" {
		return "", fmt.Errorf("%w: empty prediction field", ErrUnparseableResponse)
	}

	return prediction.Prediction, nil
}
