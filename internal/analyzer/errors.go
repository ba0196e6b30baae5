package analyzer

import "errors"

// Workflow errors surfaced to the UI layer. Each failure mode stays
// distinguishable so the caller can render a precise message.
var (
	// ErrNoImageSelected guards analyze actions invoked before any image was
	// staged; no outbound request is issued.
	ErrNoImageSelected = errors.New("no image selected")

	// ErrAnalysisInFlight rejects a second analyze action while one is
	// already running.
	ErrAnalysisInFlight = errors.New("analysis already in progress")

	// ErrClientNotReady reports that the generative client was never
	// configured (credentials missing or still loading).
	ErrClientNotReady = errors.New("generative client not initialized")

	// ErrUpstreamUnavailable covers transport failures and non-2xx replies
	// from the inference service.
	ErrUpstreamUnavailable = errors.New("inference service unavailable")

	// ErrUnparseableResponse covers replies that arrived but could not be
	// decoded into the expected shape.
	ErrUnparseableResponse = errors.New("response could not be parsed")
)
