package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/google/uuid"
)

// LoggingStore is a DocumentStore that accepts every outcome and only logs it.
// It lets the listeners run without a document database attached.
type LoggingStore struct {
	Logger *slog.Logger
}

func (s LoggingStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ApplyOcrResult implements DocumentStore
func (s LoggingStore) ApplyOcrResult(_ context.Context, jobID uuid.UUID, status contracts.OcrStatus, text string, processedAt time.Time) (bool, error) {
	s.logger().Info("OCR result", "jobId", jobID, "status", status, "textLength", len(text), "processedAt", processedAt)
	return true, nil
}

// UpdateSummary implements DocumentStore
func (s LoggingStore) UpdateSummary(_ context.Context, documentID uuid.UUID, summary string, generatedAt time.Time) (bool, error) {
	s.logger().Info("GenAI summary", "documentId", documentID, "summaryLength", len(summary), "generatedAt", generatedAt)
	return true, nil
}
