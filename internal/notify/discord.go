package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ppiankov/truthpost/internal/model"
)

// maxMessageChars is Discord's limit for a plain message
const maxMessageChars = 2000

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts one line per resolved claim to a channel
type Discord struct {
	sender    messageSender
	channelID string
}

// NewDiscord creates a bot session for token. The session only uses the
// REST API, so no gateway connection is opened.
func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return &Discord{sender: session, channelID: channelID}, nil
}

// ClaimResolved posts the verdict line
func (d *Discord) ClaimResolved(ctx context.Context, claim model.Claim) error {
	if _, err := d.sender.ChannelMessageSend(d.channelID, FormatMessage(claim), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: post %s: %w", claim.ID, err)
	}
	return nil
}

// FormatMessage renders a claim as a single announcement line
func FormatMessage(claim model.Claim) string {
	explanation := strings.Join(strings.Fields(claim.Explanation), " ")
	msg := fmt.Sprintf("%s is %s: %s (source: <%s>)", claim.ID, verdictLabel(claim.Verdict), explanation, claim.SourceURL)
	runes := []rune(msg)
	if len(runes) <= maxMessageChars {
		return msg
	}
	return string(runes[:maxMessageChars-1]) + "…"
}

func verdictLabel(v model.Verdict) string {
	switch v {
	case model.VerdictTrue:
		return "TRUE"
	case model.VerdictFalse:
		return "FALSE"
	case model.VerdictPartiallyTrue:
		return "PARTIALLY TRUE"
	default:
		return strings.ToUpper(string(v))
	}
}
