//go:build linux

package pipe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

func linuxPair(t *testing.T, transport *LinuxTransport) (*Pipe, *Pipe, string) {
	t.Helper()
	opts := []Option{TransportOption(transport), LoggerOption(&mockLogger{})}
	name := uniqueName(t)

	server, err := Listen(name, 1<<16, opts...)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	client, err := Dial(name, opts...)
	if err != nil {
		server.Close()
		t.Fatalf("Dial failed: %v", err)
	}
	return server, client, name
}

func TestLinuxTransport_RoundTrip(t *testing.T) {
	server, client, _ := linuxPair(t, &LinuxTransport{})
	defer server.Close()
	defer client.Close()

	bodies := [][]byte{
		[]byte("shizu"),
		{},
		bytes.Repeat([]byte{0xA5}, 5000),
		[]byte("abcde"),
	}
	for _, b := range bodies {
		if err := client.Write(NewMessage(b)); err != nil {
			t.Fatalf("Write(%d bytes) failed: %v", len(b), err)
		}
	}
	for i, b := range bodies {
		m := readWait(t, server, 5*time.Second)
		if !m.Equal(b) {
			t.Errorf("message %d: got %d bytes, want %d", i, m.Length(), len(b))
		}
	}

	if err := server.Write(NewMessage([]byte("reply"))); err != nil {
		t.Fatalf("server Write failed: %v", err)
	}
	if m := readWait(t, client, 5*time.Second); !m.Equal([]byte("reply")) {
		t.Errorf("client got %q", m.Body())
	}
}

func TestLinuxTransport_IdlePoll(t *testing.T) {
	transport := &LinuxTransport{}
	server, err := Listen(uniqueName(t), 80, TransportOption(transport), LoggerOption(&mockLogger{}))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	for i := 0; i < 3; i++ {
		m, err := server.Read()
		if m != nil || err != nil {
			t.Fatalf("Read with no client = %v, %v; want nil, nil", m, err)
		}
	}
}

func TestLinuxTransport_Rearm(t *testing.T) {
	transport := &LinuxTransport{}
	server, client, name := linuxPair(t, transport)
	defer server.Close()

	client.Write(NewMessage([]byte("first")))
	client.Close()

	if m := readWait(t, server, 5*time.Second); !m.Equal([]byte("first")) {
		t.Fatalf("got %q, want first", m.Body())
	}
	// The disconnect itself reads as no message.
	if m, err := server.Read(); m != nil || err != nil {
		t.Fatalf("Read after disconnect = %v, %v", m, err)
	}

	second, err := Dial(name, TransportOption(transport), LoggerOption(&mockLogger{}))
	if err != nil {
		t.Fatalf("second Dial failed: %v", err)
	}
	defer second.Close()
	second.Write(NewMessage([]byte("second")))

	if m := readWait(t, server, 5*time.Second); !m.Equal([]byte("second")) {
		t.Errorf("got %q, want second", m.Body())
	}
}

func TestLinuxTransport_ClientSeesServerClose(t *testing.T) {
	server, client, _ := linuxPair(t, &LinuxTransport{})
	defer client.Close()

	server.Close()

	if m, err := client.Read(); m != nil || err != nil {
		t.Fatalf("Read after server close = %v, %v", m, err)
	}
	if err := client.Write(NewMessage([]byte("late"))); !errors.Is(err, ErrEnvironmentFailed) {
		t.Errorf("Write after server close = %v, want ErrEnvironmentFailed", err)
	}
}

func TestLinuxTransport_DialNoServer(t *testing.T) {
	_, err := Dial(uniqueName(t), TransportOption(&LinuxTransport{}))
	if !errors.Is(err, ErrEnvironmentFailed) {
		t.Errorf("err = %v, want ErrEnvironmentFailed", err)
	}
}

func TestLinuxTransport_NameTooLongForSocket(t *testing.T) {
	// Valid as a pipe name, but longer than sun_path.
	name := "n" + strings.Repeat("x", 200)
	_, err := Listen(name, 80, TransportOption(&LinuxTransport{}))
	if !errors.Is(err, ErrEnvironmentFailed) {
		t.Errorf("err = %v, want ErrEnvironmentFailed", err)
	}
}

func TestLinuxTransport_NameInUse(t *testing.T) {
	transport := TransportOption(&LinuxTransport{})
	name := uniqueName(t)
	server, err := Listen(name, 80, transport)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	if _, err := Listen(name, 80, transport); !errors.Is(err, ErrEnvironmentFailed) {
		t.Errorf("second Listen = %v, want ErrEnvironmentFailed", err)
	}
}

func TestLinuxTransport_Dir(t *testing.T) {
	dir := t.TempDir()
	transport := &LinuxTransport{Dir: dir}
	server, client, name := linuxPair(t, transport)

	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("socket file missing: %v", err)
	}

	client.Write(NewMessage([]byte("abcde")))
	if m := readWait(t, server, 5*time.Second); !m.Equal([]byte("abcde")) {
		t.Errorf("got %q", m.Body())
	}

	client.Close()
	server.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket file left behind: %v", err)
	}
}

func TestLinuxTransport_Server(t *testing.T) {
	transport := &LinuxTransport{}
	name := uniqueName(t)
	server, err := NewServer(name, 1<<16,
		TransportOption(transport),
		PollIntervalOption(time.Millisecond),
		LoggerOption(&mockLogger{}),
	)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	defer server.Close()

	var got []string
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return server.Serve(ctx, HandlerFunc(func(m *Message) error {
			got = append(got, string(m.Body()))
			if m.Equal([]byte("shizu")) {
				return ErrStop
			}
			return nil
		}))
	})
	g.Go(func() error {
		client, err := Dial(name, TransportOption(transport), LoggerOption(&mockLogger{}))
		if err != nil {
			return err
		}
		defer client.Close()
		for _, b := range []string{"abcde", "shizu"} {
			if err := client.Write(NewMessage([]byte(b))); err != nil {
				return err
			}
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("errgroup: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server")
	}

	if len(got) != 2 || got[0] != "abcde" || got[1] != "shizu" {
		t.Errorf("handled %v, want [abcde shizu]", got)
	}
}

func TestLinuxTransport_WriteToFullPeer(t *testing.T) {
	server, client, _ := linuxPair(t, &LinuxTransport{})
	defer server.Close()
	defer client.Close()

	// Accept the client, then stop reading.
	if m, err := server.Read(); m != nil || err != nil {
		t.Fatalf("Read = %v, %v", m, err)
	}

	sent, err := fillPeer(t, client, bytes.Repeat([]byte{'x'}, 1000))
	if !errors.Is(err, ErrEnvironmentFailed) {
		t.Fatalf("err = %v, want ErrEnvironmentFailed", err)
	}
	if !errors.Is(err, unix.EAGAIN) {
		t.Errorf("err = %v, want EAGAIN in chain", err)
	}

	if n := drain(t, server); n != sent {
		t.Errorf("server read %d messages, want %d", n, sent)
	}
	if err := client.Write(NewMessage([]byte("shizu"))); err != nil {
		t.Errorf("Write after drain failed: %v", err)
	}
}

func TestLinuxTransport_DialFullBacklog(t *testing.T) {
	transport := &LinuxTransport{}
	name := uniqueName(t)
	server, err := Listen(name, 80, TransportOption(transport), LoggerOption(&mockLogger{}))
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer server.Close()

	// The server never reads, so no client is accepted.
	var clients []*Pipe
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 1<<14; i++ {
			c, err := Dial(name, TransportOption(transport), LoggerOption(&mockLogger{}))
			if err != nil {
				done <- err
				return
			}
			clients = append(clients, c)
		}
		done <- nil
	}()

	select {
	case err := <-done:
		// EAGAIN once the backlog is full, or EMFILE if the fd limit is lower.
		if !errors.Is(err, ErrEnvironmentFailed) {
			t.Errorf("err = %v, want ErrEnvironmentFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Dial did not return while the backlog was full")
	}
}
