package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bloectasy/Valeriyya/pkg/config"
	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// StatusSource reports the database state
type StatusSource interface {
	GetStatus() (string, bool)
}

// BotInfo reports the state of the Discord client
type BotInfo interface {
	IsReady() bool
	GuildCount() int
	Uptime() time.Duration
}

// API holds what the API routes read from
type API struct {
	Store    database.GuildRepository
	Database StatusSource
	Bot      BotInfo
}

// SetupAPIRoutes sets up the API routes and the metrics endpoint
func SetupAPIRoutes(s *Server, api API) {
	group := s.Group("/api")
	{
		group.GET("/health", healthHandler)
		group.GET("/status", api.statusHandler)
		group.GET("/guilds/:guildId/cases", api.casesHandler)
		group.GET("/guilds/:guildId/cases/:caseId", api.caseHandler)
		group.GET("/guilds/:guildId/history/:userId", api.historyHandler)
	}

	s.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Valeriyya is running",
	})
}

// statusHandler returns the bot and database status
func (a API) statusHandler(c *gin.Context) {
	dbStatus, dbOnline := "🔴 | Offline", false
	if a.Database != nil {
		dbStatus, dbOnline = a.Database.GetStatus()
	}

	bot := gin.H{"isOnline": false}
	if a.Bot != nil {
		bot = gin.H{
			"isOnline": a.Bot.IsReady(),
			"guilds":   a.Bot.GuildCount(),
			"uptime":   a.Bot.Uptime().Round(time.Second).String(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": bot,
	})
}

// withGuild runs fn on the guild document while holding the guild lock and
// writes the matching error response when the guild can't be read
func (a API) withGuild(c *gin.Context, fn func(doc *models.GuildDocument)) {
	guildID := c.Param("guildId")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	unlock := a.Store.Lock(guildID)
	defer unlock()

	doc, err := a.Store.Lookup(ctx, guildID)
	switch {
	case errors.Is(err, database.ErrGuildNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "Unknown guild."})
	case errors.Is(err, database.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service Unavailable", "message": "The database is offline."})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	default:
		fn(doc)
	}
}

// casesHandler lists the cases of a guild, narrowed with ?userId=
func (a API) casesHandler(c *gin.Context) {
	userID := c.Query("userId")

	a.withGuild(c, func(doc *models.GuildDocument) {
		cases := append([]models.Case{}, doc.Cases...)
		if userID != "" {
			cases = append([]models.Case{}, doc.CasesFor(userID)...)
		}

		c.JSON(http.StatusOK, gin.H{
			"guildId":     doc.GID,
			"casesNumber": doc.CasesNumber,
			"cases":       cases,
		})
	})
}

// caseHandler returns a single case
func (a API) caseHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("caseId"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "caseId must be a positive number."})
		return
	}

	a.withGuild(c, func(doc *models.GuildDocument) {
		found, ok := doc.FindCase(uint32(id))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": models.ErrCaseNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, *found)
	})
}

// historyHandler returns the action counters of a user
func (a API) historyHandler(c *gin.Context) {
	userID := c.Param("userId")

	a.withGuild(c, func(doc *models.GuildDocument) {
		history := models.History{ID: userID}
		for _, h := range doc.History {
			if h.ID == userID {
				history = h
				break
			}
		}
		c.JSON(http.StatusOK, history)
	})
}
