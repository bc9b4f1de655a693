package mail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcMailer func(ctx context.Context, msg Message) error

func (f funcMailer) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

func TestDispatch_DeliversResultOnce(t *testing.T) {
	boom := errors.New("boom")
	done := Dispatch(context.Background(), funcMailer(func(context.Context, Message) error { return boom }), Message{})

	err, ok := <-done
	require.True(t, ok)
	assert.ErrorIs(t, err, boom)

	_, ok = <-done
	assert.False(t, ok, "channel must be closed after the result")
}

func TestAwait_Success(t *testing.T) {
	var got Message
	done := Dispatch(context.Background(), funcMailer(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	}), Message{To: "a@x.com"})

	require.NoError(t, Await(context.Background(), done))
	assert.Equal(t, "a@x.com", got.To)
}

func TestAwait_ContextDone(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	done := Dispatch(context.Background(), funcMailer(func(context.Context, Message) error {
		<-release
		return nil
	}), Message{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, Await(ctx, done), context.DeadlineExceeded)
}
