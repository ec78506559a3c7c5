// Package main is the entry point for Valeriyya.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bloectasy/Valeriyya/internal/commands"
	"github.com/Bloectasy/Valeriyya/internal/events"
	"github.com/Bloectasy/Valeriyya/internal/moderation"
	"github.com/Bloectasy/Valeriyya/internal/reminders"
	"github.com/Bloectasy/Valeriyya/pkg/config"
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/errors"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/mqtt"
	"github.com/Bloectasy/Valeriyya/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Starting Valeriyya %s (built %s)...", config.Version, config.BuildTime), "Main")
	logger.Info(fmt.Sprintf("Working directory: %s", getCurrentDir()), "Main")

	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			_ = discordClient.Stop()
		}
	})

	// The bot keeps running offline while the database reconnects
	db, err := database.Init(cfg.MongoDBURL, cfg.DBName)
	if err != nil {
		logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			logger.Warn(fmt.Sprintf("Error disconnecting from database: %v", err), "Main")
		}
	}()

	store := database.NewGuildStore(db, database.DataManagerOptions{
		MaxCacheSize: cfg.GuildCacheSize,
		CacheTTL:     30 * time.Minute,
	})

	mqttClientID := "valeriyya"
	if !cfg.IsProd() {
		mqttClientID = "valeriyya_canary"
	}
	mqttClient := mqtt.Init(cfg.MQTTBroker(), cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
	defer mqttClient.Destroy()

	if err := mqttClient.On("cases", moderation.CasesRequestHandler(store)); err != nil {
		logger.Warn(fmt.Sprintf("Could not subscribe to case requests: %v", err), "Main")
	}

	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	webServer, err := web.Init(web.Options{
		WebhookURL:   cfg.LogsWebhook,
		AllowedHosts: cfg.AllowedHosts,
		RateLimit:    web.DefaultRateLimit,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating web server: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.API{
		Store:    store,
		Database: db,
		Bot:      discordClient,
	})
	webServer.StartAsync(cfg.Port)

	commands.RegisterAll(discordClient, commands.Services{
		Database:  db,
		Store:     store,
		Publisher: mqttClient,
	})

	scheduler := reminders.NewScheduler(store, discordClient.Session, reminders.DefaultInterval)
	events.RegisterAll(discordClient, events.Deps{Store: store, Guilds: scheduler})

	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := discordClient.Stop(); err != nil {
			logger.Warn(fmt.Sprintf("Error closing Discord session: %v", err), "Main")
		}
	}()

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.Run(schedulerCtx)

	logger.Success("Valeriyya started!", "Main")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Shutting down Valeriyya...", "Main")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := webServer.Shutdown(ctx); err != nil {
		logger.Warn(fmt.Sprintf("Error stopping web server: %v", err), "Main")
	}
	errors.Get().Stop()
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
