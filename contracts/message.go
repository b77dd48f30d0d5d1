package contracts

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is implemented by every type that travels through the exchange.
type Message interface {
	MessageType() MessageType
}

// Command requests work from a worker.
type Command interface {
	Message
	isCommand()
}

// Event reports the outcome of a command. Success is signaled by a populated
// result field and failure by a populated error field, never both.
type Event interface {
	Message
	Succeeded() bool
}

// OcrStatus is the outcome of an OCR job. It is encoded as a string.
type OcrStatus string

const (
	OcrCompleted OcrStatus = "Completed"
	OcrFailed    OcrStatus = "Failed"
)

// OcrCommand asks the OCR worker to extract text from a stored PDF.
type OcrCommand struct {
	JobID    uuid.UUID `json:"JobId"`
	FileName string    `json:"FileName"`
	FilePath string    `json:"FilePath"`
}

func (OcrCommand) MessageType() MessageType { return OcrCommandType }
func (OcrCommand) isCommand()               {}

// OcrEvent carries the result of an OcrCommand with the same JobID.
// Text is empty when the job failed.
type OcrEvent struct {
	JobID       uuid.UUID `json:"JobId"`
	Status      OcrStatus `json:"Status"`
	Text        string    `json:"Text,omitempty"`
	ProcessedAt time.Time `json:"ProcessedAt"`
}

func (OcrEvent) MessageType() MessageType { return OcrEventType }

// Succeeded reports whether the OCR job completed.
func (e OcrEvent) Succeeded() bool {
	return e.Status == OcrCompleted
}

// NewOcrCompleted builds a successful OCR result.
func NewOcrCompleted(jobID uuid.UUID, text string, at time.Time) OcrEvent {
	return OcrEvent{JobID: jobID, Status: OcrCompleted, Text: text, ProcessedAt: at}
}

// NewOcrFailed builds a failed OCR result.
func NewOcrFailed(jobID uuid.UUID, at time.Time) OcrEvent {
	return OcrEvent{JobID: jobID, Status: OcrFailed, ProcessedAt: at}
}

// GenAICommand asks the GenAI worker to summarize OCR text.
type GenAICommand struct {
	DocumentID uuid.UUID `json:"DocumentId"`
	Text       string    `json:"Text"`
	FileName   string    `json:"FileName"`
}

func (GenAICommand) MessageType() MessageType { return GenAICommandType }
func (GenAICommand) isCommand()               {}

// HasText reports whether the command carries anything worth summarizing.
func (c GenAICommand) HasText() bool {
	return strings.TrimSpace(c.Text) != ""
}

// GenAIEvent carries the summary generated for a document, or the reason none was.
type GenAIEvent struct {
	DocumentID   uuid.UUID `json:"DocumentId"`
	Summary      string    `json:"Summary,omitempty"`
	GeneratedAt  time.Time `json:"GeneratedAt"`
	ErrorMessage string    `json:"ErrorMessage,omitempty"`
}

func (GenAIEvent) MessageType() MessageType { return GenAIEventType }

// Succeeded reports whether a summary was produced.
func (e GenAIEvent) Succeeded() bool {
	return e.Summary != ""
}

// NewGenAISummary builds a successful summarization result.
func NewGenAISummary(documentID uuid.UUID, summary string, at time.Time) GenAIEvent {
	return GenAIEvent{DocumentID: documentID, Summary: summary, GeneratedAt: at}
}

// NewGenAIFailure builds a failed summarization result.
func NewGenAIFailure(documentID uuid.UUID, errMsg string, at time.Time) GenAIEvent {
	return GenAIEvent{DocumentID: documentID, GeneratedAt: at, ErrorMessage: errMsg}
}
