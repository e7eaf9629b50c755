package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"notechat/internal/chat"
	"notechat/internal/config"
	"notechat/internal/identity"
	"notechat/internal/note"
	"notechat/internal/protocol"
	"notechat/internal/security"
	wsocket "notechat/internal/websocket"
)

const secret = "server-test-secret"

func newTestServer(t *testing.T, checks map[string]Check) *httptest.Server {
	t.Helper()
	cfg := config.DefaultServerConfig()
	logger := logs.GetLoggerFromLevel(slog.LevelError)
	verifier := identity.NewJWTVerifier(secret)

	notes := note.NewInMemoryRepository()
	metrics := config.NewServerMetrics()
	service := chat.NewService(chat.Options{
		Registry:   chat.NewRegistry(cfg.MaxUsersPerRoom, logger),
		Authorizer: chat.NewAuthorizer(notes, logger),
		Validator:  security.NewInputValidator(cfg),
		Limiter:    config.NewRateLimiter(cfg),
		Metrics:    metrics,
		Logger:     logger,
	})
	manager := wsocket.NewManager(cfg, metrics, logger)

	srv := httptest.NewServer(NewMux(Deps{
		Config:  cfg,
		Chat:    chat.NewHandler(service, manager, verifier, cfg, logger),
		Service: service,
		Manager: manager,
		Notes:   note.NewHandler(note.NewService(notes, logger), nil, logger),
		Auth:    identity.Middleware(verifier, logger),
		Checks:  checks,
		Logger:  logger,
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(manager.CloseAll)
	return srv
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := identity.Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func getJSON(t *testing.T, url string, target any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	req := require.New(t)

	ok := newTestServer(t, map[string]Check{
		"mongodb": func(context.Context) error { return nil },
	})
	var body healthResponse
	req.Equal(http.StatusOK, getJSON(t, ok.URL+"/health", &body))
	req.Equal("ok", body.Status)
	req.Equal("ok", body.Checks["mongodb"])

	degraded := newTestServer(t, map[string]Check{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	req.Equal(http.StatusServiceUnavailable, getJSON(t, degraded.URL+"/health", &body))
	req.Equal("degraded", body.Status)
	req.Equal("connection refused", body.Checks["redis"])
}

func TestStatsCountsConnectionsAndRooms(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t, nil)

	// create a note over the API, then join its room over the socket
	r, err := http.NewRequest(http.MethodPost, srv.URL+"/notes", strings.NewReader(`{"title":"t","content":"c"}`))
	req.NoError(err)
	r.Header.Set("Authorization", "Bearer "+token(t, "u1"))
	resp, err := http.DefaultClient.Do(r)
	req.NoError(err)
	var created note.Note
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))
	_ = resp.Body.Close()
	req.Equal(http.StatusCreated, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token(t, "u1")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.WriteJSON(protocol.JoinNoteRoom(created.ID, "u1")))
	var joined protocol.Event
	req.NoError(conn.ReadJSON(&joined))
	req.Equal(protocol.TypeJoinedNoteRoom, joined.Type)

	var stats statsResponse
	req.Equal(http.StatusOK, getJSON(t, srv.URL+"/stats", &stats))
	req.Equal(1, stats.ActiveConnections)
	req.Equal(1, stats.HealthyConnections)
	req.Equal(1, stats.ActiveRooms)
	req.Equal(1000, stats.MaxConnections)
	req.EqualValues(1, stats.Metrics.JoinsAccepted)
}

func TestNotesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)
	var body map[string]string
	require.Equal(t, http.StatusUnauthorized, getJSON(t, srv.URL+"/notes", &body))
	require.Equal(t, "Unauthorized", body["message"])
}
