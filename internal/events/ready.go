package events

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/metrics"
)

// Status is the activity shown under the bot name
const Status = "🛡️ Keeping the peace | /utils help"

// RegisterReadyEvent registers the ready event handler
func RegisterReadyEvent(client *discord.ExtendedClient) {
	client.EventHandler.OnReady(onReady)
}

// onReady is called when the bot successfully connects to Discord
func onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.Success(fmt.Sprintf("✅ Bot connected: %s", discord.UserTag(r.User)), "Ready")
	logger.Info(fmt.Sprintf("📊 Connected to %d servers", len(r.Guilds)), "Ready")
	metrics.GuildsGauge.Set(float64(len(r.Guilds)))

	if err := s.UpdateGameStatus(0, Status); err != nil {
		logger.Error(fmt.Sprintf("Could not set the bot status: %v", err), "Ready")
		return
	}

	logger.Debug("Bot status set", "Ready")
}
