package main

import (
	"github.com/rs/zerolog"

	"github.com/idlib/pipe"
	"github.com/idlib/pipe/control"
)

// newHandler stops the server on the shutdown message and logs and drops
// anything else.
func newHandler(logger zerolog.Logger) pipe.Handler {
	return pipe.HandlerFunc(func(m *pipe.Message) error {
		switch control.Classify(m) {
		case control.KindShutdown:
			logger.Info().Msg("received quit message")
			return pipe.ErrStop
		default:
			logger.Warn().Int("length", m.Length()).Msg("received unknown message")
			return nil
		}
	})
}
