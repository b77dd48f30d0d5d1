package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOcrCommandWireFormat(t *testing.T) {
	id := uuid.MustParse("6f1c1f0e-58a4-4b55-8f2e-1f4d7b1b0c11")
	body, err := json.Marshal(OcrCommand{JobID: id, FileName: "a.pdf", FilePath: "/a.pdf"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"JobId":"6f1c1f0e-58a4-4b55-8f2e-1f4d7b1b0c11","FileName":"a.pdf","FilePath":"/a.pdf"}`, string(body))
}

func TestOcrEvent(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	id := uuid.New()

	t.Run("status is encoded as a string", func(t *testing.T) {
		body, err := json.Marshal(NewOcrCompleted(id, "hello", at))
		require.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.Equal(t, "Completed", raw["Status"])
		assert.Equal(t, "hello", raw["Text"])
	})

	t.Run("failed event omits text", func(t *testing.T) {
		ev := NewOcrFailed(id, at)
		assert.False(t, ev.Succeeded())

		body, err := json.Marshal(ev)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "Text")
	})

	t.Run("decodes events written by other services", func(t *testing.T) {
		in := `{"JobId":"` + id.String() + `","Status":"Failed","Text":null,"ProcessedAt":"2025-01-02T03:04:05+00:00"}`
		var ev OcrEvent
		require.NoError(t, json.Unmarshal([]byte(in), &ev))
		assert.Equal(t, id, ev.JobID)
		assert.Equal(t, OcrFailed, ev.Status)
		assert.Empty(t, ev.Text)
		assert.True(t, at.Equal(ev.ProcessedAt))
	})
}

func TestGenAIEvent(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()

	ok := NewGenAISummary(id, "S1", now)
	assert.True(t, ok.Succeeded())
	assert.Empty(t, ok.ErrorMessage)

	failed := NewGenAIFailure(id, "x", now)
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "x", failed.ErrorMessage)

	// An empty summary counts as a failure even without an error message.
	assert.False(t, GenAIEvent{DocumentID: id, GeneratedAt: now}.Succeeded())
}

func TestGenAICommandHasText(t *testing.T) {
	assert.True(t, GenAICommand{Text: "content"}.HasText())
	assert.False(t, GenAICommand{Text: "  \n\t"}.HasText())
}

func TestMessageKinds(t *testing.T) {
	var _ Command = OcrCommand{}
	var _ Command = GenAICommand{}
	var _ Event = OcrEvent{}
	var _ Event = GenAIEvent{}

	assert.Equal(t, OcrCommandType, OcrCommand{}.MessageType())
	assert.Equal(t, OcrEventType, OcrEvent{}.MessageType())
	assert.Equal(t, GenAICommandType, GenAICommand{}.MessageType())
	assert.Equal(t, GenAIEventType, GenAIEvent{}.MessageType())
}

func TestNewEnvelope(t *testing.T) {
	cmd := GenAICommand{DocumentID: uuid.New(), Text: "t", FileName: "f.pdf"}
	env, err := NewEnvelope(cmd)
	require.NoError(t, err)

	assert.Equal(t, GenAICommandRouting, env.RoutingKey)

	var decoded GenAICommand
	require.NoError(t, json.Unmarshal(env.Body, &decoded))
	assert.Equal(t, cmd, decoded)
}

type unroutable struct{}

func (unroutable) MessageType() MessageType { return "Unknown" }

func TestNewEnvelopeUnknownType(t *testing.T) {
	_, err := NewEnvelope(unroutable{})
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}
