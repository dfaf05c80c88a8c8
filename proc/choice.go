package proc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/sys"
)

// ChoicePrefix is the custom ID prefix of selection buttons.
const ChoicePrefix = "music:choice:"

// CancelChoice is the index the cancel button answers with.
const CancelChoice = -1

var (
	ErrChoiceExpired = errors.New("selection is no longer active")
	ErrNotRequester  = errors.New("only the requester can pick")
	ErrChoiceIndex   = errors.New("no such option")
)

// ChoiceBroker routes button presses to the prompt waiting on them.
type ChoiceBroker struct {
	mu   sync.Mutex
	open map[string]*Choice
}

func NewChoiceBroker() *ChoiceBroker {
	return &ChoiceBroker{open: make(map[string]*Choice)}
}

// Choice is one pending prompt.
type Choice struct {
	Nonce     string
	Requester snowflake.ID
	Options   int

	broker *ChoiceBroker
	answer chan int
}

// Open registers a prompt with options buttons for requester.
func (b *ChoiceBroker) Open(requester snowflake.ID, options int) *Choice {
	c := &Choice{
		Nonce:     uuid.NewString(),
		Requester: requester,
		Options:   options,
		broker:    b,
		answer:    make(chan int, 1),
	}
	b.mu.Lock()
	b.open[c.Nonce] = c
	b.mu.Unlock()
	return c
}

// Answer delivers index to the prompt identified by nonce. Each prompt takes
// exactly one answer.
func (b *ChoiceBroker) Answer(nonce string, user snowflake.ID, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.open[nonce]
	if !ok {
		return ErrChoiceExpired
	}
	if user != c.Requester {
		return ErrNotRequester
	}
	if index != CancelChoice && (index < 0 || index >= c.Options) {
		return ErrChoiceIndex
	}
	delete(b.open, nonce)
	c.answer <- index
	return nil
}

// Pending is the number of open prompts.
func (b *ChoiceBroker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

// Wait blocks for the answer. Cancelling returns media.ErrSelectionCancelled;
// ctx ending first returns ctx.Err().
func (c *Choice) Wait(ctx context.Context) (int, error) {
	select {
	case idx := <-c.answer:
		if idx == CancelChoice {
			return 0, media.ErrSelectionCancelled
		}
		return idx, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close withdraws the prompt. Later presses get ErrChoiceExpired.
func (c *Choice) Close() {
	c.broker.mu.Lock()
	delete(c.broker.open, c.Nonce)
	c.broker.mu.Unlock()
}

func ChoiceID(nonce string, index int) string {
	return ChoicePrefix + nonce + ":" + strconv.Itoa(index)
}

// ParseChoiceID splits a custom ID built by ChoiceID.
func ParseChoiceID(customID string) (nonce string, index int, err error) {
	rest, ok := strings.CutPrefix(customID, ChoicePrefix)
	if !ok {
		return "", 0, fmt.Errorf("not a choice id: %q", customID)
	}
	nonce, raw, ok := strings.Cut(rest, ":")
	if !ok || nonce == "" {
		return "", 0, fmt.Errorf("malformed choice id: %q", customID)
	}
	index, err = strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("malformed choice index: %w", err)
	}
	return nonce, index, nil
}

// --- Rendering ---

// BuildChoicePrompt renders the selection message for c.
func BuildChoicePrompt(c *Choice, ref *media.TrackInfo, candidates []*media.TrackInfo, timeout time.Duration) discord.MessageCreate {
	var sb strings.Builder
	fmt.Fprintf(&sb, sys.MsgMusicChoicePrompt, ref.Display(), timeout.Round(time.Second))
	for i, cand := range candidates {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, sys.MsgMusicChoiceOption, i+1, candidateLink(cand), media.FormatTimestamp(cand.Duration))
	}

	buttons := make([]discord.InteractiveComponent, 0, len(candidates))
	for i := range candidates {
		buttons = append(buttons, discord.NewButton(discord.ButtonStylePrimary, strconv.Itoa(i+1), ChoiceID(c.Nonce, i), "", 0))
	}

	return discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(
			discord.NewContainer(
				discord.NewTextDisplay(fmt.Sprintf("<@%s>\n", c.Requester)+sb.String()),
				discord.NewSeparator(discord.SeparatorSpacingSizeSmall).WithDivider(true),
				discord.NewActionRow(buttons...),
				discord.NewActionRow(
					discord.NewButton(discord.ButtonStyleDanger, "Cancel", ChoiceID(c.Nonce, CancelChoice), "", 0),
				),
			),
		).
		SetAllowedMentions(&discord.AllowedMentions{Users: []snowflake.ID{c.Requester}}).
		Build()
}

// ChoiceClosed replaces a prompt once it can no longer be answered.
func ChoiceClosed(text string) discord.MessageUpdate {
	return discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		SetComponents(discord.NewContainer(discord.NewTextDisplay(text))).
		Build()
}

func candidateLink(t *media.TrackInfo) string {
	return fmt.Sprintf("[%s](%s)", media.TruncateCenter(t.Display(), 80), t.URL)
}
