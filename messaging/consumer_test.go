package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/internal/rabbitmq"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerNext(t *testing.T) {
	jobID := uuid.New()
	valid := `{"JobId":"` + jobID.String() + `","FileName":"a.pdf","FilePath":"/a.pdf"}`

	t.Run("decodes and records pending tag", func(t *testing.T) {
		src := newFakeSource(valid)
		c := NewConsumer[contracts.OcrCommand](src)

		cmd, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, jobID, cmd.JobID)

		require.NoError(t, c.Ack())
		assert.Equal(t, []uint64{1}, src.ackedTags())
	})

	t.Run("poison message is nacked with requeue and skipped", func(t *testing.T) {
		src := newFakeSource("not json", valid)
		c := NewConsumer[contracts.OcrCommand](src)

		cmd, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, jobID, cmd.JobID)

		assert.Equal(t, []nackCall{{tag: 1, requeue: true}}, src.nackCalls())
		assert.Equal(t, int64(1), c.PoisonCount())
	})

	t.Run("null body is acked and skipped", func(t *testing.T) {
		src := newFakeSource("null", valid)
		c := NewConsumer[contracts.OcrCommand](src)

		cmd, err := c.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, jobID, cmd.JobID)
		assert.Equal(t, []uint64{1}, src.ackedTags())
		assert.Zero(t, c.PoisonCount())
	})

	t.Run("requires settlement before the next message", func(t *testing.T) {
		src := newFakeSource(valid, valid)
		c := NewConsumer[contracts.OcrCommand](src)

		_, err := c.Next(context.Background())
		require.NoError(t, err)

		_, err = c.Next(context.Background())
		assert.ErrorIs(t, err, ErrAckPending)

		require.NoError(t, c.Nack(false))
		_, err = c.Next(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, []nackCall{{tag: 1, requeue: false}}, src.nackCalls())
	})

	t.Run("Ack and Nack without outstanding message are no-ops", func(t *testing.T) {
		src := newFakeSource()
		c := NewConsumer[contracts.OcrCommand](src)

		assert.NoError(t, c.Ack())
		assert.NoError(t, c.Nack(true))
		assert.Empty(t, src.ackedTags())
		assert.Empty(t, src.nackCalls())
	})

	t.Run("second settlement is a no-op", func(t *testing.T) {
		src := newFakeSource(valid)
		c := NewConsumer[contracts.OcrCommand](src)

		_, err := c.Next(context.Background())
		require.NoError(t, err)
		require.NoError(t, c.Ack())
		require.NoError(t, c.Nack(true))

		assert.Equal(t, []uint64{1}, src.ackedTags())
		assert.Empty(t, src.nackCalls())
	})
}

func TestConsumerMessages(t *testing.T) {
	t.Run("yields in delivery order until cancelled", func(t *testing.T) {
		src := newFakeSource(
			`{"DocumentId":"`+uuid.NewString()+`","Summary":"S1"}`,
			`{"DocumentId":"`+uuid.NewString()+`","Summary":"S2"}`,
		)
		c := NewConsumer[contracts.GenAIEvent](src)
		ctx, cancel := context.WithCancel(context.Background())

		var summaries []string
		for event := range c.Messages(ctx) {
			summaries = append(summaries, event.Summary)
			require.NoError(t, c.Ack())
			if len(summaries) == 2 {
				cancel()
			}
		}

		assert.Equal(t, []string{"S1", "S2"}, summaries)
		assert.NoError(t, c.Err())
	})

	t.Run("abandoning an unsettled message on cancel is not an error", func(t *testing.T) {
		src := newFakeSource(
			`{"DocumentId":"`+uuid.NewString()+`","Summary":"S1"}`,
			`{"DocumentId":"`+uuid.NewString()+`","Summary":"S2"}`,
		)
		c := NewConsumer[contracts.GenAIEvent](src)
		ctx, cancel := context.WithCancel(context.Background())

		count := 0
		for range c.Messages(ctx) {
			count++
			cancel()
		}

		assert.Equal(t, 1, count)
		assert.NoError(t, c.Err())
		assert.Empty(t, src.ackedTags())
		assert.Empty(t, src.nackCalls())
	})

	t.Run("ends without yielding when closed", func(t *testing.T) {
		src := newFakeSource()
		c := NewConsumer[contracts.GenAIEvent](src)

		go func() {
			time.Sleep(20 * time.Millisecond)
			c.Close()
		}()

		count := 0
		for range c.Messages(context.Background()) {
			count++
		}
		assert.Zero(t, count)
		assert.NoError(t, c.Err())
	})

	t.Run("is not restartable", func(t *testing.T) {
		src := newFakeSource()
		c := NewConsumer[contracts.GenAIEvent](src)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		for range c.Messages(ctx) {
		}
		for range c.Messages(context.Background()) {
			t.Fatal("restarted sequence yielded")
		}
		assert.ErrorIs(t, c.Err(), ErrAlreadyConsuming)
	})

	t.Run("records channel failure", func(t *testing.T) {
		c := NewConsumer[contracts.GenAIEvent](failingSource{err: rabbitmq.ErrChannelClosed})

		for range c.Messages(context.Background()) {
		}
		assert.True(t, errors.Is(c.Err(), rabbitmq.ErrChannelClosed))
	})
}

type failingSource struct {
	err error
}

func (f failingSource) Next(context.Context) (rabbitmq.Delivery, error) { return rabbitmq.Delivery{}, f.err }
func (failingSource) Ack(uint64) error                                  { return nil }
func (failingSource) Nack(uint64, bool) error                           { return nil }
func (failingSource) Close() error                                      { return nil }
func (failingSource) Queue() string                                     { return "GenAIEventQueue" }
