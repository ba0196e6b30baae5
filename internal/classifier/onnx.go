package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// Metadata describes the exported model: tensor shapes, the class labels in
// output order, and the square input size expected by preprocessing.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// Model runs a pretrained crop-disease classifier through onnxruntime. The
// session and its tensors are created once at startup; Classify serializes
// forward passes because the input/output tensors are reused across calls.
type Model struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	logger       *zap.Logger
}

// loadMetadata reads and validates the exported model description. Rejecting
// a degenerate output shape here keeps Classify's argmax over the output
// tensor safe.
func loadMetadata(metadataPath string) (Metadata, error) {
	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read model metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse model metadata: %w", err)
	}
	if len(metadata.Classes) == 0 {
		return Metadata{}, fmt.Errorf("model metadata lists no classes")
	}
	if tensorElements(metadata.InputShape) <= 0 {
		return Metadata{}, fmt.Errorf("model metadata has degenerate input shape %v", metadata.InputShape)
	}
	if tensorElements(metadata.OutputShape) <= 0 {
		return Metadata{}, fmt.Errorf("model metadata has degenerate output shape %v", metadata.OutputShape)
	}
	return metadata, nil
}

// tensorElements returns the element count of a shape, or 0 when the shape is
// empty or carries a non-positive dimension.
func tensorElements(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	count := int64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return 0
		}
		count *= dim
	}
	return count
}

// NewModel loads the ONNX model and its metadata from disk and prepares a
// reusable inference session. Callers must Close the model when done.
func NewModel(modelPath, metadataPath string, logger *zap.Logger) (*Model, error) {
	metadata, err := loadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	logger.Info("model loaded",
		zap.String("path", modelPath),
		zap.Int("classes", len(metadata.Classes)),
		zap.Int("image_size", metadata.ImageSize))

	return &Model{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		logger:       logger.Named("classifier"),
	}, nil
}

// Metadata returns the loaded model description.
func (m *Model) Metadata() Metadata {
	return m.metadata
}

// Classify decodes the image bytes, preprocesses them into the model's input
// layout, and returns the highest-scoring class label.
func (m *Model) Classify(ctx context.Context, imageBytes []byte) (*Prediction, error) {
	inputData, err := preprocess(imageBytes, m.metadata.ImageSize)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputTensor.GetData(), inputData)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := m.outputTensor.GetData()
	maxIdx := 0
	maxVal := outputData[0]
	for i, val := range outputData {
		if i >= len(m.metadata.Classes) {
			break
		}
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}

	return &Prediction{
		Label:      m.metadata.Classes[maxIdx],
		Confidence: maxVal,
	}, nil
}

// Close releases the session and tensors.
func (m *Model) Close() {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	if m.session != nil {
		m.session.Destroy()
	}
	ort.DestroyEnvironment()
}
