package host

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogHost is a Host implementation that logs everything through zerolog
// instead of driving a real UI. Suitable for headless use and as the
// default in alphanes, mirroring how the teacher's packages fall back
// to plain logging when no richer frontend is wired up.
type LogHost struct {
	log zerolog.Logger
}

// NewLogHost returns a Host that writes to stderr.
func NewLogHost() *LogHost {
	return &LogHost{
		log: zerolog.New(os.Stderr).With().Str("component", "host").Timestamp().Logger(),
	}
}

func (h *LogHost) ReleaseRenderWindow() {
	h.log.Info().Msg("render window released")
}

func (h *LogHost) ReportErrorAsync(title, message string) {
	h.log.Error().Str("title", title).Msg(message)
}

func (h *LogHost) AddIconOSDMessage(key, icon, message string, duration time.Duration) {
	h.log.Info().Str("key", key).Str("icon", icon).Dur("duration", duration).Msg(message)
}

func (h *LogHost) AddIconOSDWarning(key, icon, message string, duration time.Duration) {
	h.log.Warn().Str("key", key).Str("icon", icon).Dur("duration", duration).Msg(message)
}
