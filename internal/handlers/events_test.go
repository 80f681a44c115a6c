package handlers_test

import (
	"bufio"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-tracker/internal/models"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/store"
)

// sseReader yields the names of "event:" lines and records heartbeats.
type sseReader struct {
	scanner    *bufio.Scanner
	heartbeats int
}

func (r *sseReader) next(t *testing.T) (string, bool) {
	t.Helper()
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == ": heartbeat":
			r.heartbeats++
		case strings.HasPrefix(line, "event:"):
			return strings.TrimSpace(strings.TrimPrefix(line, "event:")), true
		}
	}
	return "", false
}

func openSSE(t *testing.T, url, bearer string) (*sseReader, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	// the stream is live once the opening comment arrives
	require.True(t, scanner.Scan())
	require.Equal(t, ": connected", scanner.Text())

	return &sseReader{scanner: scanner}, func() {
		cancel()
		resp.Body.Close()
	}
}

func TestClientEvents_StreamEndsOnRegenerate(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	o := e.createOrder(p.ID)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	stream, closeStream := openSSE(t, srv.URL+"/client/"+p.AccessToken+"/events", "")
	defer closeStream()

	_, err := e.tracker.ApproveOrder(context.Background(), p.AccessToken, uuid.MustParse(o.ID))
	require.NoError(t, err)
	name, ok := stream.next(t)
	require.True(t, ok)
	assert.Equal(t, realtime.EventOrderApproved, name)

	_, err = e.tracker.RegenerateToken(context.Background(), uuid.MustParse(p.ID))
	require.NoError(t, err)
	name, ok = stream.next(t)
	require.True(t, ok)
	assert.Equal(t, realtime.EventTokenRegenerated, name)

	_, ok = stream.next(t)
	assert.False(t, ok, "stream should end after token rotation")
}

func TestProjectEvents_Heartbeat(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	stream, closeStream := openSSE(t, srv.URL+"/api/v1/projects/"+p.ID+"/events", e.bearer)
	defer closeStream()

	time.Sleep(150 * time.Millisecond)
	_, err := e.tracker.AddOrder(context.Background(), uuid.MustParse(p.ID), "Logo", "")
	require.NoError(t, err)

	name, ok := stream.next(t)
	require.True(t, ok)
	assert.Equal(t, realtime.EventOrderCreated, name)
	assert.GreaterOrEqual(t, stream.heartbeats, 1)
}

func TestClientEvents_UnknownToken(t *testing.T) {
	e := newEnv(t)
	assertError(t, e.do("GET", "/client/nope/events", "", nil), http.StatusNotFound, "not_found")
}

func TestClientWebSocket(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	o := e.createOrder(p.ID)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/client/" + p.AccessToken + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "connected", ev.Type)

	_, err = e.tracker.SubmitClientComment(context.Background(), p.AccessToken, uuid.MustParse(o.ID), "hi")
	require.NoError(t, err)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventOrderCommented, ev.Type)
	assert.Equal(t, "hi", ev.Payload["client_comment"])

	_, err = e.tracker.RevokeToken(context.Background(), uuid.MustParse(p.ID))
	require.NoError(t, err)
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventTokenRevoked, ev.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestClientWebSocket_UnknownToken(t *testing.T) {
	e := newEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/client/nope/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// rotatingStore swaps a project's token right after the next successful
// token lookup, without publishing anything.
type rotatingStore struct {
	*store.Memory
	mu    sync.Mutex
	armed bool
	next  string
}

func (s *rotatingStore) rotateAfterNextLookup(next string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.next = next
}

func (s *rotatingStore) GetProjectByToken(ctx context.Context, token string) (*models.Project, error) {
	p, err := s.Memory.GetProjectByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.armed = false
		if _, err := s.Memory.SetProjectToken(ctx, p.ID, sql.NullString{String: s.next, Valid: true}); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func TestClientStreams_TokenRotatedWhileSubscribing(t *testing.T) {
	rs := &rotatingStore{}
	e := newEnvOver(t, func(m *store.Memory) store.Store {
		rs.Memory = m
		return rs
	})
	p := e.createProject("p")
	o := e.createOrder(p.ID)
	projectID := uuid.MustParse(p.ID)

	rs.rotateAfterNextLookup("second-token")
	assertError(t, e.do("GET", "/client/"+p.AccessToken+"/events", "", nil), http.StatusNotFound, "not_found")
	assert.Zero(t, e.hub.Subscribers(projectID))

	rs.rotateAfterNextLookup("third-token")
	assertError(t, e.do("GET", "/client/second-token/ws", "", nil), http.StatusNotFound, "not_found")
	assert.Zero(t, e.hub.Subscribers(projectID))

	// the current token still streams
	srv := httptest.NewServer(e.router)
	defer srv.Close()
	stream, closeStream := openSSE(t, srv.URL+"/client/third-token/events", "")
	defer closeStream()

	_, err := e.tracker.SubmitClientComment(context.Background(), "third-token", uuid.MustParse(o.ID), "hi")
	require.NoError(t, err)
	name, ok := stream.next(t)
	require.True(t, ok)
	assert.Equal(t, realtime.EventOrderCommented, name)
}
