package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Bloectasy/Valeriyya/pkg/config"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/errors"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Show runtime statistics",
		"utils",
		statsHandler,
	)
}

func statsHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		memberCount := 0
		ctx.Session.State.RLock()
		for _, guild := range ctx.Session.State.Guilds {
			memberCount += guild.MemberCount
		}
		ctx.Session.State.RUnlock()

		embed := &discordgo.MessageEmbed{
			Title: "📊 Bot statistics",
			Color: discord.ColorDefault,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "🤖 Version", Value: config.Version, Inline: true},
				{Name: "🐹 Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
				{Name: "📚 DiscordGo", Value: discordgo.VERSION, Inline: true},
				{Name: "🖥 Memory", Value: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024), Inline: true},
				{Name: "⚙ Goroutines", Value: fmt.Sprintf("%d / %d CPUs", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
				{Name: "⏱ Uptime", Value: formatDuration(ctx.Client.Uptime()), Inline: true},
				{Name: "🏠 Servers", Value: fmt.Sprintf("%d", ctx.Client.GuildCount()), Inline: true},
				{Name: "👥 Members", Value: fmt.Sprintf("%d", memberCount), Inline: true},
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}

		_ = ctx.ReplyEmbed(embed)
	}()
	return nil
}

// formatDuration formats a duration as "1 day, 2 hours, 3 minutes, 4 seconds"
func formatDuration(dur time.Duration) string {
	units := []struct {
		value int
		name  string
	}{
		{int(dur.Hours() / 24), "day"},
		{int(dur.Hours()) % 24, "hour"},
		{int(dur.Minutes()) % 60, "minute"},
		{int(dur.Seconds()) % 60, "second"},
	}

	var parts []string
	for _, u := range units {
		if u.value == 0 {
			continue
		}
		name := u.name
		if u.value != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", u.value, name))
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, ", ")
}
