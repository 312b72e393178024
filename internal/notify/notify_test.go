package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/truthpost/internal/model"
)

type fakeSender struct {
	channel string
	content string
	err     error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.content = content
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func resolvedClaim() model.Claim {
	return model.Claim{
		ID:          "claim_7",
		Text:        "Water boils at 100C at sea level",
		SourceURL:   "https://example.org/water",
		Verdict:     model.VerdictPartiallyTrue,
		Explanation: "Correct at\nstandard   pressure only.",
		Resolved:    true,
	}
}

func TestNew_WithoutCredentialsIsNop(t *testing.T) {
	n, err := New(model.NotifyConfig{DiscordToken: "token"})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.ClaimResolved(context.Background(), resolvedClaim()))
}

func TestNew_Discord(t *testing.T) {
	n, err := New(model.NotifyConfig{DiscordToken: "token", DiscordChannelID: "42"})
	require.NoError(t, err)
	assert.IsType(t, &Discord{}, n)
}

func TestDiscord_ClaimResolved(t *testing.T) {
	sender := &fakeSender{}
	d := &Discord{sender: sender, channelID: "123"}

	require.NoError(t, d.ClaimResolved(context.Background(), resolvedClaim()))
	assert.Equal(t, "123", sender.channel)
	assert.Equal(t, "claim_7 is PARTIALLY TRUE: Correct at standard pressure only. (source: <https://example.org/water>)", sender.content)
}

func TestDiscord_ClaimResolvedError(t *testing.T) {
	sender := &fakeSender{err: errors.New("HTTP 403 Forbidden")}
	d := &Discord{sender: sender, channelID: "123"}

	err := d.ClaimResolved(context.Background(), resolvedClaim())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claim_7")
}

func TestFormatMessage_Truncates(t *testing.T) {
	c := resolvedClaim()
	c.Explanation = strings.Repeat("é", 3000)

	msg := FormatMessage(c)
	assert.Equal(t, maxMessageChars, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, "…"))
}
