package worker

import (
	"context"
	"strings"

	"github.com/glimte/paperless-go/contracts"
)

// OcrResultListener records OCR outcomes and notifies live subscribers
type OcrResultListener struct {
	store    DocumentStore
	notifier Notifier[contracts.OcrEvent]
	opts     options
}

// NewOcrResultListener creates a listener. notifier may be nil when no stream is served.
func NewOcrResultListener(store DocumentStore, notifier Notifier[contracts.OcrEvent], opts ...Option) *OcrResultListener {
	o := newOptions(opts)
	o.logger = o.logger.With("listener", "ocr-result")
	return &OcrResultListener{store: store, notifier: notifier, opts: o}
}

// Run handles events until ctx is done or src ends, returning src.Err().
func (l *OcrResultListener) Run(ctx context.Context, src Source[contracts.OcrEvent]) error {
	l.opts.logger.Info("OCR result listener started")
	for event := range src.Messages(ctx) {
		l.Handle(ctx, src, event)
	}
	l.opts.logger.Info("OCR result listener stopped")
	return src.Err()
}

// Handle stores one event, settles it and, if stored, notifies subscribers.
// A store error requeues the event; an unknown job discards it.
func (l *OcrResultListener) Handle(ctx context.Context, src Source[contracts.OcrEvent], event contracts.OcrEvent) {
	logger := l.opts.logger.With("jobId", event.JobID, "status", event.Status)
	logger.Info("received OCR result")

	var text string
	if event.Succeeded() {
		text = event.Text
	}

	found, err := l.store.ApplyOcrResult(ctx, event.JobID, event.Status, text, event.ProcessedAt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("failed to store OCR result", "error", err)
		settle(logger, "nack", src.Nack(true))
		return
	}
	if !found {
		logger.Warn("no document for OCR job, discarding")
		settle(logger, "nack", src.Nack(false))
		return
	}

	settle(logger, "ack", src.Ack())
	if l.notifier != nil {
		l.notifier.Publish(event)
	}
	logger.Info("processed OCR result")
}

// GenAIResultListener records summaries and notifies live subscribers
type GenAIResultListener struct {
	store    DocumentStore
	notifier Notifier[contracts.GenAIEvent]
	opts     options
}

// NewGenAIResultListener creates a listener. notifier may be nil when no stream is served.
func NewGenAIResultListener(store DocumentStore, notifier Notifier[contracts.GenAIEvent], opts ...Option) *GenAIResultListener {
	o := newOptions(opts)
	o.logger = o.logger.With("listener", "genai-result")
	return &GenAIResultListener{store: store, notifier: notifier, opts: o}
}

// Run handles events until ctx is done or src ends, returning src.Err().
func (l *GenAIResultListener) Run(ctx context.Context, src Source[contracts.GenAIEvent]) error {
	l.opts.logger.Info("GenAI result listener started")
	for event := range src.Messages(ctx) {
		l.Handle(ctx, src, event)
	}
	l.opts.logger.Info("GenAI result listener stopped")
	return src.Err()
}

// Handle stores a summary, settles the event and notifies subscribers.
// Events with a blank summary count as failures: they are not stored but are
// still announced. A summary for an unknown document is acked without
// notification.
func (l *GenAIResultListener) Handle(ctx context.Context, src Source[contracts.GenAIEvent], event contracts.GenAIEvent) {
	logger := l.opts.logger.With("documentId", event.DocumentID)

	if strings.TrimSpace(event.Summary) == "" {
		reason := event.ErrorMessage
		if reason == "" {
			reason = "unknown error"
		}
		logger.Warn("GenAI failed for document", "reason", reason)
		settle(logger, "ack", src.Ack())
		l.notify(event)
		return
	}

	logger.Info("received GenAI summary")

	found, err := l.store.UpdateSummary(ctx, event.DocumentID, event.Summary, event.GeneratedAt)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("failed to store summary", "error", err)
		settle(logger, "nack", src.Nack(true))
		return
	}
	if !found {
		logger.Warn("no document for summary, discarding")
		settle(logger, "ack", src.Ack())
		return
	}

	settle(logger, "ack", src.Ack())
	l.notify(event)
	logger.Info("stored GenAI summary")
}

func (l *GenAIResultListener) notify(event contracts.GenAIEvent) {
	if l.notifier != nil {
		l.notifier.Publish(event)
	}
}
