// Package worker holds the background loops that bridge paperless queues to
// their collaborators.
//
// OcrWorker and GenAIWorker consume commands, call out to an OCR engine or a
// summarizer, and publish the outcome as an event. OcrResultListener and
// GenAIResultListener consume those events, record them in a DocumentStore,
// settle the delivery, and then hand the event to a Notifier so that live
// stream subscribers see it. Settling and notifying are independent: a crash
// in between leaves the queue correct and merely skips the notification.
//
// Every loop pulls from a Source and settles each message with exactly one
// Ack or Nack before pulling the next. Supervise restarts a loop on a fresh
// consumer when its channel dies.
package worker
