package host

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogNotifier writes notices to the log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: log.With().Str("module", "Notice").Logger()}
}

func (n *LogNotifier) Notify(message string) {
	n.log.Info().Msg(message)
}

// Notifiers fans a notice out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) Notify(message string) {
	for _, notifier := range n {
		if notifier != nil {
			notifier.Notify(message)
		}
	}
}
