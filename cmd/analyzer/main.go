package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/leaf-check/internal/analyzer"
	"github.com/example/leaf-check/internal/gemini"
	"github.com/example/leaf-check/internal/logging"
)

func main() {
	imagePath := flag.String("image", "", "path to the leaf image to analyze")
	inline := flag.String("inline", "", "base64 image payload (data-URL prefix allowed) instead of -image")
	mode := flag.String("mode", "local", "analysis backend: local or gemini")
	serverURL := flag.String("server", "", "inference service base URL (default $INFERENCE_URL or http://localhost:8000)")
	timeout := flag.Duration("timeout", 30*time.Second, "outbound analyze timeout")
	flag.Parse()

	// Missing .env is fine: credentials can come from the environment.
	_ = godotenv.Load()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	data, filename, mimeType, err := loadImage(*imagePath, *inline)
	if err != nil {
		fail(logger, "no image selected: %v", err)
	}

	baseURL := *serverURL
	if baseURL == "" {
		baseURL = getEnv("INFERENCE_URL", "http://localhost:8000")
	}
	local := analyzer.NewLocalClient(baseURL, *timeout, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var generative gemini.Analyzer
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		client, err := gemini.NewClient(ctx, apiKey, getEnv("GEMINI_MODEL", "gemini-2.0-flash"), logger)
		if err != nil {
			logger.Warn("generative client unavailable", zap.Error(err))
		} else {
			generative = client
		}
	}

	workflow := analyzer.NewWorkflow(local, generative, logger)
	if err := workflow.SelectImage(data, filename, mimeType); err != nil {
		fail(logger, "failed to stage image: %v", err)
	}

	var outcome analyzer.Outcome
	switch *mode {
	case "local":
		outcome, err = workflow.AnalyzeLocal(ctx)
	case "gemini":
		outcome, err = workflow.AnalyzeGenerative(ctx)
	default:
		fail(logger, "unknown mode %q (want local or gemini)", *mode)
	}
	if err != nil {
		fail(logger, "%s", describeFailure(err))
	}

	printOutcome(outcome)
}

func loadImage(path, inline string) ([]byte, string, string, error) {
	if inline != "" {
		data, err := gemini.DecodeInlineImage(inline)
		if err != nil {
			return nil, "", "", err
		}
		return data, "inline.jpg", "image/jpeg", nil
	}
	if path == "" {
		return nil, "", "", errors.New("provide -image or -inline")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", err
	}
	mimeType := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mimeType = "image/png"
	}
	return data, filepath.Base(path), mimeType, nil
}

func describeFailure(err error) string {
	switch {
	case errors.Is(err, analyzer.ErrNoImageSelected):
		return "select an image before analyzing"
	case errors.Is(err, analyzer.ErrClientNotReady):
		return "generative analysis unavailable: set GEMINI_API_KEY"
	case errors.Is(err, analyzer.ErrUnparseableResponse):
		return fmt.Sprintf("could not understand the model's response: %v", err)
	case errors.Is(err, analyzer.ErrUpstreamUnavailable):
		return fmt.Sprintf("inference service unreachable: %v", err)
	default:
		return fmt.Sprintf("analysis failed: %v", err)
	}
}

func printOutcome(outcome analyzer.Outcome) {
	switch v := outcome.(type) {
	case analyzer.LocalPrediction:
		fmt.Printf("Detected condition: %s\n", v.Label)
	case analyzer.GenerativeAnalysis:
		r := v.Result
		fmt.Printf("Plant: %s (confidence %.2f)\n", r.Plant.Name, r.Plant.Confidence)
		if r.Health.Healthy {
			fmt.Println("Health: healthy")
		} else {
			fmt.Printf("Health: %s (confidence %.2f)\n", r.Health.Disease, r.Health.Confidence)
		}
		if r.Health.Description != "" {
			fmt.Printf("  %s\n", r.Health.Description)
		}
		if r.Care.Cure != "" {
			fmt.Printf("Cure: %s\n", r.Care.Cure)
		}
		if len(r.Care.Products) > 0 {
			fmt.Printf("Recommended products: %s\n", strings.Join(r.Care.Products, ", "))
		}
	}
}

func fail(logger *zap.Logger, format string, args ...any) {
	logger.Sync() //nolint:errcheck
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
