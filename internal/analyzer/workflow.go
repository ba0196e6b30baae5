package analyzer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/example/leaf-check/internal/gemini"
)

// State names a position in the analysis lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateImageSelected State = "image_selected"
	StateAnalyzing     State = "analyzing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Outcome is the tagged result of an analysis. The local classifier produces
// only a label; the generative model produces the full structured record.
// Keeping them as distinct variants means neither path can populate the
// other's shape.
type Outcome interface {
	outcome()
}

// LocalPrediction is the bare label returned by the inference service.
type LocalPrediction struct {
	Label string
}

func (LocalPrediction) outcome() {}

// GenerativeAnalysis is the structured record from the generative model.
type GenerativeAnalysis struct {
	Result *gemini.AnalysisResult
}

func (GenerativeAnalysis) outcome() {}

// Workflow drives the Idle → ImageSelected → Analyzing → Succeeded/Failed
// state machine. At most one analysis runs at a time.
type Workflow struct {
	local      LocalPredictor
	generative gemini.Analyzer
	logger     *zap.Logger

	mu         sync.Mutex
	state      State
	imageBytes []byte
	filename   string
	mimeType   string
	result     Outcome
	lastErr    error
}

// NewWorkflow builds a workflow over the two analysis backends. The
// generative analyzer may be nil when credentials are absent; invoking that
// path then fails with ErrClientNotReady.
func NewWorkflow(local LocalPredictor, generative gemini.Analyzer, logger *zap.Logger) *Workflow {
	return &Workflow{
		local:      local,
		generative: generative,
		logger:     logger.Named("analyzer"),
		state:      StateIdle,
	}
}

// SelectImage stages a newly chosen image and discards any prior result or
// error. Selecting a new image never merges with stale state.
func (w *Workflow) SelectImage(data []byte, filename, mimeType string) error {
	if len(data) == 0 {
		return ErrNoImageSelected
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateAnalyzing {
		return ErrAnalysisInFlight
	}

	w.imageBytes = data
	w.filename = filename
	w.mimeType = mimeType
	w.result = nil
	w.lastErr = nil
	w.state = StateImageSelected
	return nil
}

// AnalyzeLocal sends the staged image to the inference service and records a
// LocalPrediction outcome.
func (w *Workflow) AnalyzeLocal(ctx context.Context) (Outcome, error) {
	image, filename, mimeType, err := w.beginAnalysis()
	if err != nil {
		return nil, err
	}

	label, err := w.local.Predict(ctx, image, filename, mimeType)
	if err != nil {
		w.finishFailed(err)
		return nil, err
	}

	outcome := LocalPrediction{Label: label}
	w.finishSucceeded(outcome)
	return outcome, nil
}

// AnalyzeGenerative sends the staged image to the generative model and
// records a GenerativeAnalysis outcome. A missing client is a pre-flight
// rejection, like calling without a staged image: the call returns
// ErrClientNotReady and the machine does not move.
func (w *Workflow) AnalyzeGenerative(ctx context.Context) (Outcome, error) {
	if w.generative == nil {
		return nil, ErrClientNotReady
	}

	image, _, mimeType, err := w.beginAnalysis()
	if err != nil {
		return nil, err
	}

	result, err := w.generative.AnalyzeImage(ctx, image, mimeType)
	if err != nil {
		if errors.Is(err, gemini.ErrNoJSONObject) || errors.Is(err, gemini.ErrEmptyResponse) || errors.Is(err, gemini.ErrMalformedAnalysis) {
			err = errors.Join(ErrUnparseableResponse, err)
		}
		w.finishFailed(err)
		return nil, err
	}

	outcome := GenerativeAnalysis{Result: result}
	w.finishSucceeded(outcome)
	return outcome, nil
}

// State reports the current lifecycle position.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Result returns the outcome of the last successful analysis, if any.
func (w *Workflow) Result() Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Err returns the failure of the last analysis, if any.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Workflow) beginAnalysis() ([]byte, string, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateAnalyzing {
		return nil, "", "", ErrAnalysisInFlight
	}
	if len(w.imageBytes) == 0 {
		return nil, "", "", ErrNoImageSelected
	}

	w.state = StateAnalyzing
	w.result = nil
	w.lastErr = nil
	return w.imageBytes, w.filename, w.mimeType, nil
}

func (w *Workflow) finishSucceeded(outcome Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result = outcome
	w.lastErr = nil
	w.state = StateSucceeded
}

func (w *Workflow) finishFailed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.result = nil
	w.lastErr = err
	w.state = StateFailed
	w.logger.Warn("analysis failed", zap.Error(err))
}
