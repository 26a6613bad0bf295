package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type stubCloser struct {
	err    error
	closed bool
}

func (s *stubCloser) Close() error {
	s.closed = true
	return s.err
}

func TestDeferClose(t *testing.T) {
	t.Run("nil closer is a no-op", func(t *testing.T) {
		var buf bytes.Buffer
		DeferClose(zerolog.New(&buf), nil, "close vault")
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("clean close logs nothing", func(t *testing.T) {
		var buf bytes.Buffer
		closer := &stubCloser{}

		DeferClose(zerolog.New(&buf), closer, "close vault")

		if !closer.closed {
			t.Error("Close() was not called")
		}
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})

	t.Run("close error is logged", func(t *testing.T) {
		var buf bytes.Buffer
		closer := &stubCloser{err: errors.New("disk full")}

		DeferClose(zerolog.New(&buf), closer, "close vault")

		if !bytes.Contains(buf.Bytes(), []byte("disk full")) {
			t.Errorf("log output missing close error: %s", buf.String())
		}
	})
}

func TestMust(t *testing.T) {
	t.Run("nil error passes", func(t *testing.T) {
		Must(nil, "open state")
	})

	t.Run("error panics with context", func(t *testing.T) {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic")
			}
			if s, ok := r.(string); !ok || s != "open state: boom" {
				t.Errorf("panic value = %v", r)
			}
		}()
		Must(errors.New("boom"), "open state")
	})
}
