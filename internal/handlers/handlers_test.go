package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/heartboard/server/internal/auth"
	"github.com/heartboard/server/internal/database"
	"github.com/heartboard/server/internal/models"
	"github.com/heartboard/server/internal/room"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (f *fakeAccounts) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = make(map[string]models.User)
	}
	if u.Email != "" {
		if _, ok := f.users[u.Email]; ok {
			return database.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	key := u.Email
	if key == "" {
		key = u.ID.String()
	}
	f.users[key] = *u
	return nil
}

func (f *fakeAccounts) AuthenticateUser(_ context.Context, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.Password != password {
		return nil, database.ErrInvalidCredentials
	}
	return &u, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, accounts Accounts) (*Server, *httptest.Server) {
	t.Helper()
	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)
	engine := room.NewEngine(quietLogger(), room.DefaultOptions())
	srv := NewServer(engine, issuer, accounts, quietLogger())
	srv.Debug = true
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		engine.Wait()
	})
	return srv, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["rooms"])
}

func TestGuestIdentityIsStable(t *testing.T) {
	accounts := &fakeAccounts{}
	_, ts := newTestServer(t, accounts)

	resp := postJSON(t, ts.URL+"/user/guest?name=Alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.Equal(t, "Alice", first.Username)
	assert.True(t, first.Guest)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == AuthCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Len(t, accounts.users, 1)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/user/guest", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	again, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer again.Body.Close()
	var second userResponse
	require.NoError(t, json.NewDecoder(again.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, accounts.users, 1)
}

func TestCreateAndLogin(t *testing.T) {
	_, ts := newTestServer(t, &fakeAccounts{})

	resp := postJSON(t, ts.URL+"/user/create", credentials{Email: "Alice@Example.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, "alice", created.Username)

	resp = postJSON(t, ts.URL+"/user/create", credentials{Email: "alice@example.com", Password: "pw"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/create", credentials{Email: "", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/login", credentials{Email: "alice@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/user/login", credentials{Email: "alice@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logged userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logged))
	assert.Equal(t, created.ID, logged.ID)
}

func TestAccountsUnavailable(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := postJSON(t, ts.URL+"/user/login", credentials{Email: "a@b.c", Password: "pw"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRoomSnapshotEndpoint(t *testing.T) {
	srv, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/rooms/ab")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/rooms/ABC123")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = srv.Engine.JoinRoom("ABC123", room.Identity{UserID: "alice", Name: "Alice"})
	require.NoError(t, err)

	resp, err = http.Get(ts.URL + "/rooms/abc123")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "ABC123", snap["code"])
}

func dial(t *testing.T, ts *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?name=" + name
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg map[string]any) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

// readUntil reads events until one of type typ arrives.
func readUntil(t *testing.T, c *websocket.Conn, typ string) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err, "waiting for %s", typ)
		var ev map[string]any
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev["type"] == typ {
			return ev
		}
	}
}

func TestRoomSocketFlow(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	a := dial(t, ts, "Alice")
	b := dial(t, ts, "Bob")

	send(t, a, map[string]any{"type": room.ActionJoin, "roomCode": "abc123"})
	joined := readUntil(t, a, room.EventRoomJoined)
	assert.Equal(t, "ABC123", joined["roomCode"])
	readUntil(t, a, room.EventPlayerJoined)

	send(t, a, map[string]any{"type": room.ActionDrawHeart, "roomCode": "ABC123"})
	errEv := readUntil(t, a, room.EventRoomError)
	assert.Equal(t, "Game not started", errEv["message"])

	send(t, b, map[string]any{"type": room.ActionJoin, "roomCode": "ABC123"})
	readUntil(t, b, room.EventRoomJoined)
	ev := readUntil(t, a, room.EventPlayerJoined)
	player, ok := ev["player"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bob", player["name"])

	send(t, a, map[string]any{"type": room.ActionReady, "roomCode": "ABC123"})
	send(t, b, map[string]any{"type": room.ActionReady, "roomCode": "ABC123"})
	start := readUntil(t, a, room.EventGameStart)
	assert.EqualValues(t, 1, start["turnCount"])
	readUntil(t, b, room.EventGameStart)

	require.NoError(t, b.Close(websocket.StatusNormalClosure, "bye"))
	left := readUntil(t, a, room.EventPlayerLeft)
	assert.Equal(t, true, left["interrupted"])

	require.Eventually(t, func() bool {
		data, err := srv.Engine.Snapshot("ABC123")
		if err != nil {
			return false
		}
		var r map[string]any
		_ = json.Unmarshal(data, &r)
		players, _ := r["players"].([]any)
		return len(players) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRoomSocketInputErrors(t *testing.T) {
	_, ts := newTestServer(t, nil)
	a := dial(t, ts, "Alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte("{not json")))
	ev := readUntil(t, a, room.EventRoomError)
	assert.Equal(t, msgInvalidJSON, ev["message"])

	send(t, a, map[string]any{"type": room.ActionJoin, "roomCode": "no"})
	ev = readUntil(t, a, room.EventRoomError)
	assert.Equal(t, msgInvalidRoomCode, ev["message"])

	send(t, a, map[string]any{"type": "fly", "roomCode": "ABC123"})
	ev = readUntil(t, a, room.EventRoomError)
	assert.Equal(t, msgUnknownType, ev["message"])

	send(t, a, map[string]any{"type": room.ActionPlace, "roomCode": "ABC123", "heartId": "x"})
	ev = readUntil(t, a, room.EventRoomError)
	assert.Equal(t, msgTileRequired, ev["message"])
}

func TestRoomSocketRequiresSubprotocol(t *testing.T) {
	_, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, strings.Replace(ts.URL, "http", "ws", 1)+"/ws", nil)
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusCode(BadSubprotocolError), websocket.CloseStatus(err))
}

func TestHubDeliverHidesOpponentHand(t *testing.T) {
	h := NewHub(quietLogger())
	a := newConnection(room.Identity{UserID: "alice"}, func() {})
	b := newConnection(room.Identity{UserID: "bob"}, func() {})
	h.Join("ABC123", a)
	h.Join("ABC123", b)

	view := json.RawMessage(`{"code":"ABC123","gameState":{"turnCount":1,"playerHands":{` +
		`"alice":[{"id":"h1","color":"red"}],"bob":[{"id":"h2","color":"blue"}]}}}`)
	h.Deliver([]room.Event{{
		Name:  room.EventHeartDrawn,
		Scope: room.ToRoom,
		Room:  "ABC123",
		Data:  map[string]any{"userId": "alice", "card": map[string]any{"id": "h1"}, "room": view},
	}}, a)

	hands := func(c *Connection) (map[string]any, map[string]any) {
		require.Len(t, c.OutChan, 1)
		var ev map[string]any
		require.NoError(t, json.Unmarshal(<-c.OutChan, &ev))
		gs := ev["room"].(map[string]any)["gameState"].(map[string]any)
		assert.EqualValues(t, 1, gs["turnCount"])
		return ev, gs["playerHands"].(map[string]any)
	}

	evA, handsA := hands(a)
	assert.Contains(t, handsA, "alice")
	assert.NotContains(t, handsA, "bob")
	assert.Contains(t, evA, "card")

	evB, handsB := hands(b)
	assert.Contains(t, handsB, "bob")
	assert.NotContains(t, handsB, "alice")
	assert.NotContains(t, evB, "card")
	assert.Equal(t, "alice", evB["userId"])
}

func TestHubDeliverScopes(t *testing.T) {
	h := NewHub(quietLogger())
	a := newConnection(room.Identity{UserID: "alice"}, func() {})
	b := newConnection(room.Identity{UserID: "bob"}, func() {})
	h.Join("ABC123", a)
	h.Join("ABC123", b)

	h.Deliver([]room.Event{room.ErrorEvent("ABC123", "nope")}, a)
	assert.Len(t, a.OutChan, 1)
	assert.Len(t, b.OutChan, 0)

	assert.True(t, h.Connected("ABC123", "alice", b))
	assert.False(t, h.Connected("ABC123", "alice", a))

	h.Join("XYZ789", a)
	assert.Equal(t, "XYZ789", a.Room())
	assert.Len(t, h.Members("ABC123"), 1)
}
