package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/leaf-check/internal/classifier"
	"github.com/example/leaf-check/internal/logging"
	"github.com/example/leaf-check/internal/repository"
)

// AnalysisRepository defines the persistence operations needed by the use case.
type AnalysisRepository interface {
	SaveLog(ctx context.Context, log *repository.AnalysisLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.AnalysisLog, error)
	FindDuplicatesByHash(ctx context.Context, userID, hash, excludeRequestID string) ([]*repository.AnalysisLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// AnalysisUseCase orchestrates classification, caching, and persistence for
// one prediction request.
type AnalysisUseCase struct {
	repo           AnalysisRepository
	cache          Cache
	model          classifier.Classifier
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedAnalysis struct {
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Filename   string    `json:"filename"`
	Hash       string    `json:"sha1_hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// DuplicateReport lists prior submissions of the same image.
type DuplicateReport struct {
	Request    *repository.AnalysisLog
	Duplicates []*repository.AnalysisLog
}

// NewAnalysisUseCase constructs a new use case instance.
func NewAnalysisUseCase(repo AnalysisRepository, cache Cache, model classifier.Classifier, logger *zap.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{
		repo:           repo,
		cache:          cache,
		model:          model,
		logger:         logger.Named("analysis_usecase"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AnalyzeImage runs the classifier on the upload and records the outcome.
func (uc *AnalysisUseCase) AnalyzeImage(ctx context.Context, userID, filename string, imageBytes []byte) (string, *classifier.Prediction, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze_image", requestID)

	cacheKey := fmt.Sprintf("analysis:%s", requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, "processing", time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return "", nil, err
	}

	prediction, err := uc.model.Classify(ctx, imageBytes)
	if err != nil {
		if errors.Is(err, classifier.ErrInvalidImage) {
			opLogger.Warn("undecodable image upload", zap.Error(err))
			return "", nil, err
		}
		wrapped := logging.NewOperationError("usecase.classify_image", requestID, err)
		opLogger.Error("classification failed", zap.Error(wrapped))
		return "", nil, wrapped
	}
	if prediction.Label == "" {
		wrapped := logging.NewOperationError("usecase.classify_image", requestID, errors.New("classifier returned empty label"))
		opLogger.Error("classification produced no label", zap.Error(wrapped))
		return "", nil, wrapped
	}

	hash := sha1.Sum(imageBytes)
	hashHex := hex.EncodeToString(hash[:])
	log := &repository.AnalysisLog{
		RequestID:  requestID,
		UserID:     userID,
		Filename:   filename,
		Label:      prediction.Label,
		Confidence: prediction.Confidence,
		SHA1Hash:   hashHex,
		Details:    fmt.Sprintf("label:%s confidence:%f hash:%s", prediction.Label, prediction.Confidence, hashHex),
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist analysis log", zap.Error(wrapped))
		return "", nil, wrapped
	}

	cached := cachedAnalysis{
		RequestID:  requestID,
		UserID:     userID,
		Label:      log.Label,
		Confidence: log.Confidence,
		Filename:   log.Filename,
		Hash:       log.SHA1Hash,
		CreatedAt:  log.CreatedAt,
	}

	serialized, err := json.Marshal(cached)
	if err != nil {
		opLogger.Error("failed to serialize analysis result", zap.Error(err))
		return "", nil, err
	}

	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), 5*time.Minute)
	}); err != nil {
		opLogger.Error("failed to cache analysis result", zap.Error(err))
		return "", nil, err
	}

	return requestID, prediction, nil
}

// GetResult retrieves a cached analysis outcome or loads from persistence.
func (uc *AnalysisUseCase) GetResult(ctx context.Context, userID, requestID string) (*repository.AnalysisLog, error) {
	cacheKey := fmt.Sprintf("analysis:%s", requestID)
	if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
		var payload cachedAnalysis
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		} else if payload.UserID != "" && payload.UserID != userID {
			// Same owner scoping as the repository query below.
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("cached result owned by another user")
		} else {
			log := &repository.AnalysisLog{
				RequestID:  requestID,
				UserID:     userID,
				Label:      payload.Label,
				Confidence: payload.Confidence,
				Filename:   payload.Filename,
				SHA1Hash:   payload.Hash,
				CreatedAt:  payload.CreatedAt,
			}
			if payload.UserID != "" {
				log.UserID = payload.UserID
			}
			if payload.RequestID != "" {
				log.RequestID = payload.RequestID
			}
			return log, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
	}

	return uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
}

// GetDuplicateReport builds a repeat-submission report for an analysis request.
func (uc *AnalysisUseCase) GetDuplicateReport(ctx context.Context, userID, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindDuplicatesByHash(ctx, userID, log.SHA1Hash, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{
		Request:    log,
		Duplicates: duplicates,
	}, nil
}

func (uc *AnalysisUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *AnalysisUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
