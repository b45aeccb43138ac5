package observability

import (
	"github.com/danmuck/dltctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime logger and tags it with the tool name.
func InitLogger(tool string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("tool", tool).Logger()
	log.Logger = logger
	return logger
}
