package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/idlib/pipe"
	"github.com/idlib/pipe/control"
	"github.com/idlib/pipe/example/internal/config"
)

func TestRunClientSendsShutdown(t *testing.T) {
	transport := pipe.NewMemoryTransport()
	cfg := config.Default()

	server, err := pipe.Listen(cfg.Pipe.Name, cfg.Pipe.Capacity, pipe.TransportOption(transport))
	assert.NilError(t, err)
	defer server.Close()

	assert.NilError(t, runClient(cfg, control.Shutdown(), zerolog.Nop(), pipe.TransportOption(transport)))

	msg, err := server.Read()
	assert.NilError(t, err)
	assert.Assert(t, msg != nil)
	assert.Equal(t, msg.Length(), 5)
	assert.Check(t, control.IsShutdown(msg))

	// The client disconnected after sending.
	msg, err = server.Read()
	assert.NilError(t, err)
	assert.Check(t, msg == nil)
}

func TestRunClientNoServer(t *testing.T) {
	err := runClient(config.Default(), control.Shutdown(), zerolog.Nop(), pipe.TransportOption(pipe.NewMemoryTransport()))
	assert.ErrorContains(t, err, "pipe.Dial")
	assert.Check(t, is.ErrorIs(err, pipe.ErrEnvironmentFailed))
}

func TestClientCommandRejectsBadName(t *testing.T) {
	cmd := newClientCommand()
	cmd.SetArgs([]string{"--name", "../bad name"})
	err := cmd.ExecuteContext(context.Background())
	assert.Check(t, is.ErrorIs(err, pipe.ErrInvalidArgument))
}
