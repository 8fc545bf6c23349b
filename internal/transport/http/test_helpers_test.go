package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/groupchat-server/internal/auth"
	"github.com/vovakirdan/groupchat-server/internal/config"
	"github.com/vovakirdan/groupchat-server/internal/core"
	"github.com/vovakirdan/groupchat-server/internal/proto"
	"github.com/vovakirdan/groupchat-server/internal/store"
	"github.com/vovakirdan/groupchat-server/internal/store/sqlite"
)

const testSecret = "testsecret"

// createTestStore creates an in-memory SQLite store with migrations applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.MaxMessageBytes = 1 << 20
	cfg.MaxBodyBytes = 1 << 20
	cfg.JWTSecret = testSecret
	return cfg
}

type testEnv struct {
	server *httptest.Server
	auth   *auth.Service
	store  store.Store
}

func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	st := createTestStore(t)
	authService := createTestAuthService(t, st, cfg.JWTSecret)

	disabledLogger := zerolog.Nop()
	opts := core.Options{HistoryLimit: cfg.HistoryLimit, LobbyName: cfg.LobbyName}
	if cfg.JWTRequired {
		opts.Verifier = authService
	}
	hub := core.NewHub(st, opts, &disabledLogger)
	if err := hub.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap hub: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, authService, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testEnv{server: ts, auth: authService, store: st}
}

func (e *testEnv) register(t *testing.T, email, password, nickname string) {
	t.Helper()

	if err := e.auth.Register(context.Background(), email, password, nickname); err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readEvent reads frames until an event with the given name arrives and decodes its data into v.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, v any) {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if out.Type != proto.OutboundTypeEvent || out.Event != event {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(out.Data, v); err != nil {
				t.Fatalf("unmarshal %s: %v", event, err)
			}
		}
		return
	}
}

// readError reads frames until an error frame arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out rawOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error frame: %v", err)
		}
		if out.Type == proto.OutboundTypeError {
			if out.Error == nil {
				t.Fatalf("error frame without error body")
			}
			return out.Error
		}
	}
}

// enterLobby identifies conn as email and waits for the lobby history.
func enterLobby(t *testing.T, ctx context.Context, conn *websocket.Conn, email, nickname, token string) proto.EnterLobbyResult {
	t.Helper()

	send(t, ctx, conn, proto.InboundEnterLobby, proto.UserData{Email: email, Nickname: nickname, Token: token})
	var res proto.EnterLobbyResult
	readEvent(t, ctx, conn, proto.EventEnterLobbyResult, &res)
	return res
}
