package sse

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glimte/paperless-go/broadcast"
	"github.com/glimte/paperless-go/contracts"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	event string
	data  string
}

// openStream connects to path and waits until the broadcaster sees the subscription
func openStream[T any](t *testing.T, srv *httptest.Server, path string, b *broadcast.Broadcaster[T]) (*bufio.Reader, *http.Response, context.CancelFunc) {
	t.Helper()

	before := b.SubscriberCount()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	require.Eventually(t, func() bool { return b.SubscriberCount() > before }, time.Second, 5*time.Millisecond)
	return bufio.NewReader(resp.Body), resp, cancel
}

func readFrame(t *testing.T, r *bufio.Reader) frame {
	t.Helper()

	var f frame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && f.event != "":
			return f
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func newGenAIServer(t *testing.T) (*httptest.Server, *broadcast.Broadcaster[contracts.GenAIEvent]) {
	t.Helper()

	b := broadcast.New[contracts.GenAIEvent]("genai")
	r := chi.NewRouter()
	MountGenAIEventStream(r, "", b)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, b
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEvent(&buf, "test-event", map[string]int{"n": 1}))
	assert.Equal(t, "event: test-event\ndata: {\"n\":1}\n\n", buf.String())

	assert.Error(t, WriteEvent(&buf, "bad", make(chan int)))
}

func TestGenAIEventStream(t *testing.T) {
	t.Run("sets streaming headers", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		_, resp, cancel := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	})

	t.Run("failed summary is classified genai-failed", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		reader, _, cancel := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel()

		docID := uuid.New()
		b.Publish(contracts.GenAIEvent{DocumentID: docID, GeneratedAt: time.Now(), ErrorMessage: "x"})

		f := readFrame(t, reader)
		assert.Equal(t, "genai-failed", f.event)
		assert.Contains(t, f.data, `"x"`)
		assert.Contains(t, f.data, docID.String())
	})

	t.Run("frames arrive in publish order", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		reader, _, cancel := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel()

		now := time.Now()
		b.Publish(contracts.NewGenAISummary(uuid.New(), "S1", now))
		b.Publish(contracts.NewGenAISummary(uuid.New(), "S2", now))
		b.Publish(contracts.NewGenAIFailure(uuid.New(), "boom", now))

		first, second, third := readFrame(t, reader), readFrame(t, reader), readFrame(t, reader)
		assert.Equal(t, "genai-completed", first.event)
		assert.Contains(t, first.data, `"summary":"S1"`)
		assert.Equal(t, "genai-completed", second.event)
		assert.Contains(t, second.data, `"summary":"S2"`)
		assert.Equal(t, "genai-failed", third.event)
	})

	t.Run("each client receives every frame", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		r1, _, cancel1 := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel1()
		r2, _, cancel2 := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel2()

		b.Publish(contracts.NewGenAISummary(uuid.New(), "S1", time.Now()))

		assert.Equal(t, "genai-completed", readFrame(t, r1).event)
		assert.Equal(t, "genai-completed", readFrame(t, r2).event)
	})

	t.Run("disconnect unsubscribes", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		_, _, cancel := openStream(t, srv, DefaultGenAIEventsPath, b)

		cancel()
		assert.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	})

	t.Run("closing the source ends the stream", func(t *testing.T) {
		srv, b := newGenAIServer(t)
		reader, _, cancel := openStream(t, srv, DefaultGenAIEventsPath, b)
		defer cancel()

		b.Close()
		_, err := reader.ReadString('\n')
		assert.Error(t, err)
	})
}

func TestOcrEventStream(t *testing.T) {
	b := broadcast.New[contracts.OcrEvent]("ocr")
	r := chi.NewRouter()
	MountOcrEventStream(r, "/ocr", b, WithHeartbeat(10*time.Millisecond))
	srv := httptest.NewServer(r)
	defer srv.Close()

	reader, _, cancel := openStream(t, srv, "/ocr", b)
	defer cancel()

	jobID := uuid.New()
	b.Publish(contracts.NewOcrCompleted(jobID, "hello", time.Now()))
	b.Publish(contracts.NewOcrFailed(jobID, time.Now()))

	completed := readFrame(t, reader)
	assert.Equal(t, "ocr-completed", completed.event)
	assert.Contains(t, completed.data, `"jobId":"`+jobID.String()+`"`)
	assert.Contains(t, completed.data, `"status":"Completed"`)

	failed := readFrame(t, reader)
	assert.Equal(t, "ocr-failed", failed.event)
	assert.Contains(t, failed.data, `"text":null`)
}
