package home

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/proc"
	"github.com/leeineian/cadence/sys"
)

const pingRefreshID = "ping_refresh"

func init() {
	adminPerm := discord.PermissionAdministrator

	sys.RegisterCommand(discord.SlashCommandCreate{
		Name:                     "ping",
		Description:              "Check bot latency and player load (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
	}, handlePing)

	sys.RegisterComponentHandler(pingRefreshID, handlePingRefresh)
}

func handlePing(event *events.ApplicationCommandInteractionCreate) {
	content := pingContent(event.Client(), event.ID(), "🏓")
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		SetEphemeral(true).
		AddComponents(pingContainer(content)).
		Build())
	if err != nil {
		sys.LogDebug("Failed to send ping: %v", err)
	}
}

func handlePingRefresh(event *events.ComponentInteractionCreate) {
	content := pingContent(event.Client(), event.ID(), "🔁")
	_ = event.UpdateMessage(discord.NewMessageUpdateBuilder().
		SetIsComponentsV2(true).
		SetComponents(pingContainer(content)).
		Build())
}

func pingContainer(content string) discord.ContainerComponent {
	return discord.NewContainer(
		discord.NewTextDisplay(content),
		discord.NewActionRow(
			discord.NewSuccessButton("🔄 Refresh", pingRefreshID),
		),
	)
}

func pingContent(client *bot.Client, interactionID snowflake.ID, icon string) string {
	latency := time.Since(interactionID.Time()).Milliseconds()
	gw := client.Gateway.Latency().Milliseconds()

	active, total := 0, 0
	if m := proc.GetMusic(); m != nil {
		for _, s := range m.Players.Sessions() {
			total++
			if s.State() != player.StateIdle {
				active++
			}
		}
	}
	return fmt.Sprintf("# Pong! %s\n\n> **Latency:** %dms\n> **Gateway:** %dms\n> **Players:** %d active / %d total\n> **Uptime:** %s",
		icon, latency, gw, active, total, time.Since(sys.StartupTime).Round(time.Second))
}
