package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

// CasesResponse answers a cases request
type CasesResponse struct {
	GuildID     string          `json:"guildId"`
	CasesNumber uint32          `json:"casesNumber"`
	Cases       []models.Case   `json:"cases"`
	History     *models.History `json:"history,omitempty"`
}

// CasesRequestHandler serves "cases" requests received over MQTT.
// The payload carries guildId and optionally userId to narrow the result.
func CasesRequestHandler(store database.GuildRepository) func(payload map[string]interface{}) (interface{}, error) {
	return func(payload map[string]interface{}) (interface{}, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, fmt.Errorf("guildId is required")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		unlock := store.Lock(guildID)
		defer unlock()

		doc, err := store.Lookup(ctx, guildID)
		if err != nil {
			return nil, err
		}

		resp := CasesResponse{
			GuildID:     guildID,
			CasesNumber: doc.CasesNumber,
			Cases:       append([]models.Case(nil), doc.Cases...),
		}

		if userID, _ := payload["userId"].(string); userID != "" {
			resp.Cases = doc.CasesFor(userID)
			for i := range doc.History {
				if doc.History[i].ID == userID {
					h := doc.History[i]
					resp.History = &h
				}
			}
		}

		if resp.Cases == nil {
			resp.Cases = []models.Case{}
		}
		return resp, nil
	}
}
