package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Stream event names
const (
	OcrCompletedEvent   = "ocr-completed"
	OcrFailedEvent      = "ocr-failed"
	GenAICompletedEvent = "genai-completed"
	GenAIFailedEvent    = "genai-failed"
)

// OcrEventPayload is the camelCase projection of an OcrEvent pushed to browsers.
// Absent text is rendered as null.
type OcrEventPayload struct {
	JobID       uuid.UUID `json:"jobId"`
	Status      OcrStatus `json:"status"`
	Text        *string   `json:"text"`
	ProcessedAt time.Time `json:"processedAt"`
}

// Payload projects e for streaming
func (e OcrEvent) Payload() OcrEventPayload {
	return OcrEventPayload{
		JobID:       e.JobID,
		Status:      e.Status,
		Text:        optional(e.Text),
		ProcessedAt: e.ProcessedAt,
	}
}

// EventName classifies e as ocr-completed or ocr-failed
func (e OcrEvent) EventName() string {
	if e.Succeeded() {
		return OcrCompletedEvent
	}
	return OcrFailedEvent
}

// GenAIEventPayload is the camelCase projection of a GenAIEvent pushed to browsers.
type GenAIEventPayload struct {
	DocumentID   uuid.UUID `json:"documentId"`
	Summary      *string   `json:"summary"`
	GeneratedAt  time.Time `json:"generatedAt"`
	ErrorMessage *string   `json:"errorMessage"`
}

// Payload projects e for streaming
func (e GenAIEvent) Payload() GenAIEventPayload {
	return GenAIEventPayload{
		DocumentID:   e.DocumentID,
		Summary:      optional(e.Summary),
		GeneratedAt:  e.GeneratedAt,
		ErrorMessage: optional(e.ErrorMessage),
	}
}

// EventName classifies e as genai-completed or genai-failed
func (e GenAIEvent) EventName() string {
	if e.Succeeded() {
		return GenAICompletedEvent
	}
	return GenAIFailedEvent
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
