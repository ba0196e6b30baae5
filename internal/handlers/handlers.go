package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/leaf-check/internal/auth"
	"github.com/example/leaf-check/internal/classifier"
	"github.com/example/leaf-check/internal/repository"
	"github.com/example/leaf-check/internal/usecase"
)

// MaxUploadSize caps the accepted image payload at 10 MiB.
const MaxUploadSize = 10 << 20

// AnalysisService is the slice of use-case behavior the HTTP layer depends on.
type AnalysisService interface {
	AnalyzeImage(ctx context.Context, userID, filename string, imageBytes []byte) (string, *classifier.Prediction, error)
	GetResult(ctx context.Context, userID, requestID string) (*repository.AnalysisLog, error)
	GetDuplicateReport(ctx context.Context, userID, requestID string) (*usecase.DuplicateReport, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// RegisterRoutes wires the HTTP handlers to the Gin router. authMiddleware
// guards the history/stats routes; optionalAuth runs on /predict so uploads
// from authenticated callers get attributed to the token subject.
func RegisterRoutes(router *gin.Engine, svc AnalysisService, authMiddleware, optionalAuth gin.HandlerFunc) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Crop Disease Detection API is running!"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/predict", optionalAuth, func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required; use multipart field 'file'"})
			return
		}

		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		if contentType := file.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file provided is not an image"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		data, err := io.ReadAll(io.LimitReader(src, MaxUploadSize+1))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
			return
		}
		if len(data) > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		requestID, prediction, err := svc.AnalyzeImage(c.Request.Context(), callerID(c), file.Filename, data)
		if err != nil {
			if errors.Is(err, classifier.ErrInvalidImage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image format; supported: JPEG, PNG"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
			return
		}

		c.Header("X-Request-ID", requestID)
		c.JSON(http.StatusOK, gin.H{"prediction": prediction.Label})
	})

	authorized := router.Group("/", authMiddleware)

	authorized.GET("/history/:id", func(c *gin.Context) {
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		log, err := svc.GetResult(c.Request.Context(), callerID(c), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		c.JSON(http.StatusOK, analysisLogJSON(log))
	})

	authorized.GET("/history/:id/duplicates", func(c *gin.Context) {
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		report, err := svc.GetDuplicateReport(c.Request.Context(), callerID(c), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		duplicates := make([]gin.H, 0, len(report.Duplicates))
		for _, dup := range report.Duplicates {
			duplicates = append(duplicates, analysisLogJSON(dup))
		}
		c.JSON(http.StatusOK, gin.H{
			"request":    analysisLogJSON(report.Request),
			"duplicates": duplicates,
		})
	})

	authorized.GET("/stats", func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

func callerID(c *gin.Context) string {
	if userID, ok := auth.GetUserID(c.Request.Context()); ok {
		return userID
	}
	return "anonymous"
}

func analysisLogJSON(log *repository.AnalysisLog) gin.H {
	return gin.H{
		"request_id": log.RequestID,
		"user_id":    log.UserID,
		"filename":   log.Filename,
		"prediction": log.Label,
		"confidence": log.Confidence,
		"created_at": log.CreatedAt,
	}
}
