package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/glimte/paperless-go/contracts"
)

// OcrWorker turns OcrCommands into OcrEvents and, for documents with text,
// GenAICommands.
type OcrWorker struct {
	processor OcrProcessor
	publisher Publisher
	opts      options
}

// NewOcrWorker creates an OCR worker
func NewOcrWorker(processor OcrProcessor, publisher Publisher, opts ...Option) *OcrWorker {
	o := newOptions(opts)
	o.logger = o.logger.With("worker", "ocr")
	return &OcrWorker{processor: processor, publisher: publisher, opts: o}
}

// Run processes commands until ctx is done or src ends, returning src.Err().
func (w *OcrWorker) Run(ctx context.Context, src Source[contracts.OcrCommand]) error {
	w.opts.logger.Info("OCR worker started")
	for cmd := range src.Messages(ctx) {
		w.Handle(ctx, src, cmd)
	}
	w.opts.logger.Info("OCR worker stopped")
	return src.Err()
}

// Handle processes one command and settles it on src
func (w *OcrWorker) Handle(ctx context.Context, src Source[contracts.OcrCommand], cmd contracts.OcrCommand) {
	logger := w.opts.logger.With("jobId", cmd.JobID, "fileName", cmd.FileName)
	logger.Info("processing OCR job")

	result, err := w.processor.Process(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrTransient) {
			logger.Warn("transient OCR failure, requeueing", "error", err)
			pause(ctx, w.opts.requeueDelay)
			settle(logger, "nack", src.Nack(true))
			return
		}
		logger.Error("OCR failed", "error", err)
		result = contracts.NewOcrFailed(cmd.JobID, w.opts.now())
	}
	result.JobID = cmd.JobID

	if err := w.opts.publish(ctx, w.publisher, result); err != nil {
		logger.Error("failed to publish OCR result", "error", err)
		settle(logger, "nack", src.Nack(true))
		return
	}

	if result.Succeeded() && strings.TrimSpace(result.Text) != "" {
		next := contracts.GenAICommand{DocumentID: cmd.JobID, Text: result.Text, FileName: cmd.FileName}
		if err := w.opts.publish(ctx, w.publisher, next); err != nil {
			logger.Error("failed to publish GenAI command", "error", err)
			settle(logger, "nack", src.Nack(true))
			return
		}
		logger.Info("published GenAI command", "documentId", cmd.JobID)
	}

	settle(logger, "ack", src.Ack())
	logger.Info("published OCR result", "status", result.Status)
}
