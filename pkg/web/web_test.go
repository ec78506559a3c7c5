package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bloectasy/Valeriyya/pkg/database"
	"github.com/Bloectasy/Valeriyya/pkg/logger"
	"github.com/Bloectasy/Valeriyya/pkg/models"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "valeriyya-web")
	if err != nil {
		panic(err)
	}
	logger.LogsDir = dir
	logger.Get().SetConsole(discardWriter{})

	code := m.Run()
	logger.Get().Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeBot struct{}

func (fakeBot) IsReady() bool         { return true }
func (fakeBot) GuildCount() int       { return 2 }
func (fakeBot) Uptime() time.Duration { return 90 * time.Second }

func newTestServer(t *testing.T, opts Options) (*Server, *database.GuildStore) {
	t.Helper()

	db := database.NewDatabase()
	store := database.NewGuildStore(db)

	doc := models.NewGuildDocument("100")
	doc.AddCase(models.Case{ID: 1, Action: models.ActionBan, GuildID: "100", TargetID: "2", Reason: "spam"})
	doc.AddCase(models.Case{ID: 2, Action: models.ActionKick, GuildID: "100", TargetID: "3", Reason: "raid"})
	doc.GetUserHistory("2").Ban = 1
	require.NoError(t, store.Save(t.Context(), doc))

	s, err := NewServer(opts)
	require.NoError(t, err)
	SetupAPIRoutes(s, API{Store: store, Database: db, Bot: fakeBot{}})
	return s, store
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Database struct {
			IsOnline bool `json:"isOnline"`
		} `json:"database"`
		Bot struct {
			IsOnline bool   `json:"isOnline"`
			Guilds   int    `json:"guilds"`
			Uptime   string `json:"uptime"`
		} `json:"bot"`
	}
	decode(t, w, &body)
	assert.False(t, body.Database.IsOnline)
	assert.True(t, body.Bot.IsOnline)
	assert.Equal(t, 2, body.Bot.Guilds)
	assert.Equal(t, "1m30s", body.Bot.Uptime)
}

func TestCases(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/guilds/100/cases")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		CasesNumber uint32        `json:"casesNumber"`
		Cases       []models.Case `json:"cases"`
	}
	decode(t, w, &body)
	assert.EqualValues(t, 2, body.CasesNumber)
	assert.Len(t, body.Cases, 2)

	w = get(s, "/api/guilds/100/cases?userId=3")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	require.Len(t, body.Cases, 1)
	assert.Equal(t, "raid", body.Cases[0].Reason)
}

func TestCase(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/guilds/100/cases/1")
	require.Equal(t, http.StatusOK, w.Code)
	var c models.Case
	decode(t, w, &c)
	assert.Equal(t, models.ActionBan, c.Action)

	assert.Equal(t, http.StatusNotFound, get(s, "/api/guilds/100/cases/9").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/guilds/100/cases/abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/api/guilds/100/cases/0").Code)
}

func TestHistory(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/guilds/100/history/2")
	require.Equal(t, http.StatusOK, w.Code)
	var h models.History
	decode(t, w, &h)
	assert.EqualValues(t, 1, h.Ban)

	w = get(s, "/api/guilds/100/history/99")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &h)
	assert.Equal(t, models.History{ID: "99"}, h)
}

func TestUnknownGuildWhileOffline(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/api/guilds/404/cases")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNotFoundRoute(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w := get(s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAllowedHosts(t *testing.T) {
	s, _ := newTestServer(t, Options{AllowedHosts: `^api\.example\.com$`})

	assert.Equal(t, http.StatusForbidden, get(s, "/api/health").Code)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "api.example.com"
	s.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidAllowedHosts(t *testing.T) {
	_, err := NewServer(Options{AllowedHosts: "("})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{RateLimit: RateLimitConfig{Window: time.Minute, MaxRequests: 3}})

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, get(s, "/api/health").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(s, "/api/health").Code)
}
