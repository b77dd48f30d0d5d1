package worker

import (
	"context"
	"errors"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/reliability"
)

// SummaryFailedMessage is reported when the summarizer returns no summary
const SummaryFailedMessage = "Failed to generate summary"

// GenAIWorker turns GenAICommands into GenAIEvents
type GenAIWorker struct {
	summarizer Summarizer
	publisher  Publisher
	opts       options
}

// NewGenAIWorker creates a GenAI worker
func NewGenAIWorker(summarizer Summarizer, publisher Publisher, opts ...Option) *GenAIWorker {
	o := newOptions(opts)
	o.logger = o.logger.With("worker", "genai")
	return &GenAIWorker{summarizer: summarizer, publisher: publisher, opts: o}
}

// Run processes commands until ctx is done or src ends, returning src.Err().
func (w *GenAIWorker) Run(ctx context.Context, src Source[contracts.GenAICommand]) error {
	w.opts.logger.Info("GenAI worker started")
	for cmd := range src.Messages(ctx) {
		w.Handle(ctx, src, cmd)
	}
	w.opts.logger.Info("GenAI worker stopped")
	return src.Err()
}

// Handle summarizes one command and settles it on src.
//
// Empty text is acked and skipped. A transient summarizer error, or an open
// circuit, requeues the command. Any other error publishes a failure event
// and discards the command.
func (w *GenAIWorker) Handle(ctx context.Context, src Source[contracts.GenAICommand], cmd contracts.GenAICommand) {
	logger := w.opts.logger.With("documentId", cmd.DocumentID)

	if !cmd.HasText() {
		logger.Warn("received GenAI command with empty text")
		settle(logger, "ack", src.Ack())
		return
	}

	logger.Info("generating summary")

	summary, err := w.summarize(ctx, cmd.Text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrTransient) || errors.Is(err, reliability.ErrCircuitOpen) {
			logger.Warn("transient GenAI failure, requeueing", "error", err)
			pause(ctx, w.opts.requeueDelay)
			settle(logger, "nack", src.Nack(true))
			return
		}

		logger.Error("fatal GenAI failure, discarding", "error", err)
		failure := contracts.NewGenAIFailure(cmd.DocumentID, err.Error(), w.opts.now())
		if perr := w.opts.publish(ctx, w.publisher, failure); perr != nil {
			logger.Error("failed to publish failure event", "error", perr)
		}
		settle(logger, "nack", src.Nack(false))
		return
	}

	event := contracts.NewGenAISummary(cmd.DocumentID, summary, w.opts.now())
	if summary == "" {
		event = contracts.NewGenAIFailure(cmd.DocumentID, SummaryFailedMessage, w.opts.now())
	}

	if err := w.opts.publish(ctx, w.publisher, event); err != nil {
		logger.Error("failed to publish GenAI result", "error", err)
		settle(logger, "nack", src.Nack(true))
		return
	}

	settle(logger, "ack", src.Ack())
	logger.Info("processed document", "hasSummary", event.Succeeded())
}

func (w *GenAIWorker) summarize(ctx context.Context, text string) (string, error) {
	if w.opts.breaker == nil {
		return w.summarizer.Summarize(ctx, text)
	}

	var summary string
	err := w.opts.breaker.Execute(ctx, func() error {
		var err error
		summary, err = w.summarizer.Summarize(ctx, text)
		if err != nil && !errors.Is(err, ErrTransient) {
			return reliability.Permanent(err)
		}
		return err
	})
	return summary, err
}
