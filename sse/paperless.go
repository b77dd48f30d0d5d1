package sse

import (
	"net/http"

	"github.com/glimte/paperless-go/contracts"
	"github.com/go-chi/chi/v5"
)

// Default stream paths
const (
	DefaultOcrEventsPath   = "/api/v1/ocr-results"
	DefaultGenAIEventsPath = "/api/v1/events/genai"
)

// OcrEventHandler streams OCR outcomes as ocr-completed / ocr-failed events
func OcrEventHandler(src Source[contracts.OcrEvent], opts ...HandlerOption) http.HandlerFunc {
	return Handler(src,
		func(e contracts.OcrEvent) any { return e.Payload() },
		contracts.OcrEvent.EventName,
		opts...)
}

// GenAIEventHandler streams summarization outcomes as genai-completed / genai-failed events
func GenAIEventHandler(src Source[contracts.GenAIEvent], opts ...HandlerOption) http.HandlerFunc {
	return Handler(src,
		func(e contracts.GenAIEvent) any { return e.Payload() },
		contracts.GenAIEvent.EventName,
		opts...)
}

// MountOcrEventStream registers the OCR stream on r. An empty path uses DefaultOcrEventsPath.
func MountOcrEventStream(r chi.Router, path string, src Source[contracts.OcrEvent], opts ...HandlerOption) {
	if path == "" {
		path = DefaultOcrEventsPath
	}
	r.Get(path, OcrEventHandler(src, opts...))
}

// MountGenAIEventStream registers the GenAI stream on r. An empty path uses DefaultGenAIEventsPath.
func MountGenAIEventStream(r chi.Router, path string, src Source[contracts.GenAIEvent], opts ...HandlerOption) {
	if path == "" {
		path = DefaultGenAIEventsPath
	}
	r.Get(path, GenAIEventHandler(src, opts...))
}
