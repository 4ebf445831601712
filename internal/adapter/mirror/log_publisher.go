package mirror

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/corebank/internal/domain"
)

// LogPublisher implements usecase.MirrorPublisher by logging commands
// instead of sending them. It stands in for the real mirror in local
// development and when mirroring is disabled.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the command.
func (p *LogPublisher) Publish(ctx context.Context, cmd domain.MirrorCommand) error {
	p.logger.Info().
		Str("kind", string(cmd.Kind)).
		Str("account_id", cmd.AccountID).
		Str("counterparty_id", cmd.CounterpartyID).
		Str("amount", cmd.Amount.String()).
		Str("currency", cmd.Currency).
		Str("reference", cmd.Reference).
		Msg("mirror command")

	return nil
}
