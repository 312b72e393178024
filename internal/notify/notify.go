// Package notify announces resolved claims to outside channels.
package notify

import (
	"context"

	"github.com/ppiankov/truthpost/internal/model"
)

// Notifier is told about every claim that reaches a verdict. Delivery is
// best effort; callers log failures and carry on.
type Notifier interface {
	ClaimResolved(ctx context.Context, claim model.Claim) error
}

// Nop discards every announcement
type Nop struct{}

// ClaimResolved does nothing
func (Nop) ClaimResolved(context.Context, model.Claim) error {
	return nil
}

// New returns a Discord notifier when cfg names a bot token and channel,
// otherwise Nop.
func New(cfg model.NotifyConfig) (Notifier, error) {
	if cfg.DiscordToken == "" || cfg.DiscordChannelID == "" {
		return Nop{}, nil
	}
	return NewDiscord(cfg.DiscordToken, cfg.DiscordChannelID)
}
