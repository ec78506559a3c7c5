package mod

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/discord"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "valeriyya-mod-logs")
	if err != nil {
		panic(err)
	}
	logger.LogsDir = dir
	logger.Get().SetConsole(io.Discard)

	code := m.Run()
	logger.Get().Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// restRecorder answers every Discord REST call and records "METHOD path"
type restRecorder struct {
	mu       sync.Mutex
	requests []string
	// status overrides the response of paths containing the key
	status map[string]int
}

func (r *restRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req.Method+" "+req.URL.Path)
	code := http.StatusOK
	for part, status := range r.status {
		if strings.Contains(req.URL.Path, part) {
			code = status
		}
	}
	r.mu.Unlock()

	body := "{}"
	if code >= 400 {
		body = `{"code": 50013, "message": "Missing Permissions"}`
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Request:    req,
	}, nil
}

func (r *restRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requests...)
}

func banInteraction(t *testing.T, rest *restRecorder) *discord.CommandContext {
	t.Helper()
	session, err := discordgo.New("Bot token")
	require.NoError(t, err)
	session.Client = &http.Client{Transport: rest}

	ctx := interaction("ban",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "member", Type: discordgo.ApplicationCommandOptionUser, Value: "2"},
	)
	ctx.Session = session
	ctx.Interaction.ID = "900"
	ctx.Interaction.AppID = "app"
	ctx.Interaction.Token = "tok"
	return ctx
}

func seededStore(t *testing.T) *database.GuildStore {
	t.Helper()
	store := database.NewGuildStore(database.NewDatabase())
	doc := models.NewGuildDocument("100")
	doc.CasesNumber = 5
	require.NoError(t, store.Save(context.Background(), doc))
	return store
}

func TestBanDefersBeforeWorking(t *testing.T) {
	rest := &restRecorder{}
	store := seededStore(t)
	h := &handlers{deps: Deps{Store: store}}

	require.NoError(t, h.ban(banInteraction(t, rest)))

	assert.Equal(t, []string{
		"POST /api/v10/interactions/900/tok/callback",
		"PUT /api/v10/guilds/100/bans/2",
		"PATCH /api/v10/webhooks/app/tok/messages/@original",
	}, rest.calls())

	doc, err := store.Lookup(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 6, doc.CasesNumber)
}

func TestBanFailureAnswersWithFollowup(t *testing.T) {
	rest := &restRecorder{status: map[string]int{"/bans/": http.StatusForbidden}}
	store := seededStore(t)
	h := &handlers{deps: Deps{Store: store}}

	require.NoError(t, h.ban(banInteraction(t, rest)))

	assert.Equal(t, []string{
		"POST /api/v10/interactions/900/tok/callback",
		"PUT /api/v10/guilds/100/bans/2",
		"POST /api/v10/webhooks/app/tok",
		"DELETE /api/v10/webhooks/app/tok/messages/@original",
	}, rest.calls())

	doc, err := store.Lookup(context.Background(), "100")
	require.NoError(t, err)
	assert.EqualValues(t, 6, doc.CasesNumber)
	assert.Empty(t, doc.Cases)
}

func TestBanWithoutPermissionEditsDeferredReply(t *testing.T) {
	rest := &restRecorder{}
	h := &handlers{deps: Deps{Store: seededStore(t)}}

	ctx := banInteraction(t, rest)
	ctx.Interaction.Member.Permissions = discordgo.PermissionKickMembers

	require.NoError(t, h.ban(ctx))
	assert.Equal(t, []string{
		"POST /api/v10/interactions/900/tok/callback",
		"PATCH /api/v10/webhooks/app/tok/messages/@original",
	}, rest.calls())
}
