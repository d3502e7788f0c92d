package cmdlog

import (
	"github.com/rs/zerolog/log"

	"fidscope/internal/metrics"
)

// Run wraps a CLI command with metrics and a structured outcome log line.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	err := f()
	if err != nil {
		metrics.IncCommandError(cmd)
		log.Error().Str("command", cmd).Err(err).Msg("command failed")
	} else {
		log.Debug().Str("command", cmd).Msg("command ok")
	}
	return err
}
