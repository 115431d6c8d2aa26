package pipe

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// uniqueName returns a valid endpoint name no other test uses.
func uniqueName(t *testing.T) string {
	t.Helper()
	return "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// readWait polls p until a message arrives or the timeout elapses.
func readWait(t *testing.T, p *Pipe, timeout time.Duration) *Message {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		m, err := p.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if m != nil {
			return m
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for message")
		}
		time.Sleep(time.Millisecond)
	}
}

// fillPeer writes body through w until a write fails and returns how many
// writes succeeded along with the failure. The test fails if a write does
// not return within the timeout or the peer never fills up.
func fillPeer(t *testing.T, w *Pipe, body []byte) (int, error) {
	t.Helper()

	type result struct {
		sent int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		m := NewMessage(body)
		for i := 0; i < 1<<16; i++ {
			if err := w.Write(m); err != nil {
				done <- result{i, err}
				return
			}
		}
		done <- result{1 << 16, nil}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			t.Fatalf("%d writes succeeded without the peer reading", r.sent)
		}
		return r.sent, r.err
	case <-time.After(5 * time.Second):
		t.Fatal("Write did not return while the peer was not reading")
		return 0, nil
	}
}

// drain reads from r until no message is left and returns the count.
func drain(t *testing.T, r *Pipe) int {
	t.Helper()
	n := 0
	for {
		m, err := r.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if m == nil {
			return n
		}
		n++
	}
}
