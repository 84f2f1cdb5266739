package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/utils/async"
	"github.com/m-mizutani/gt"
)

// safeBuffer is a thread-safe buffer for concurrent logging
type safeBuffer struct {
	b bytes.Buffer
	m sync.Mutex
}

func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.Write(p)
}

func (sb *safeBuffer) String() string {
	sb.m.Lock()
	defer sb.m.Unlock()
	return sb.b.String()
}

func TestDispatch_ExecutesHandler(t *testing.T) {
	done := make(chan struct{})

	async.Dispatch(context.Background(), func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not executed")
	}
}

func TestDispatch_DetachesFromRequestContext(t *testing.T) {
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled, like a finished webhook request

	done := make(chan error, 1)
	async.Dispatch(reqCtx, func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	})

	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler was not executed")
	}
}

func TestDispatch_LogsHandlerError(t *testing.T) {
	buf := &safeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	ctx := ctxlog.With(context.Background(), logger)

	done := make(chan struct{})
	async.Dispatch(ctx, func(ctx context.Context) error {
		defer close(done)
		return errors.New("handler failed")
	})

	<-done
	waitFor(t, func() bool {
		return strings.Contains(buf.String(), "handler failed")
	})
}

func TestDispatch_RecoversPanic(t *testing.T) {
	buf := &safeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	ctx := ctxlog.With(context.Background(), logger)

	async.Dispatch(ctx, func(ctx context.Context) error {
		panic("boom")
	})

	waitFor(t, func() bool {
		return strings.Contains(buf.String(), "panic in async handler")
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
