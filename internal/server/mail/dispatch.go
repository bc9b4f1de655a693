package mail

import "context"

// Dispatch sends msg on its own goroutine. The returned channel yields
// exactly one result and is then closed.
func Dispatch(ctx context.Context, m Mailer, msg Message) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)
		done <- m.Send(ctx, msg)
	}()

	return done
}

// Await blocks until the dispatched send finishes or ctx is done.
func Await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
