// Package notify delivers short player messages over Telegram and live sockets.
package notify

import (
	"context"

	"ton_miner/internal/service"
)

// Fanout forwards every message to all sinks. Nil sinks are skipped.
type Fanout []service.Notifier

func NewFanout(sinks ...service.Notifier) Fanout {
	out := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f Fanout) Notify(ctx context.Context, accountID int64, message string) {
	for _, s := range f {
		s.Notify(ctx, accountID, message)
	}
}
