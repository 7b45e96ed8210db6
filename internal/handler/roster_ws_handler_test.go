package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/model"
	"github.com/stemsi/eduadmin-backend/internal/service"
	ws "github.com/stemsi/eduadmin-backend/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rosterStream struct {
	conn *websocket.Conn
	done chan struct{}
}

// dialRoster serves the roster handler for teacher 7 and connects to sessionID.
func dialRoster(t *testing.T, a *attendanceRouter, sessionID string, poll time.Duration) *rosterStream {
	t.Helper()
	h := NewRosterWSHandler(a.broker, a.sessions, a.attendance, poll, zerolog.Nop(), nil)
	done := make(chan struct{})

	r := gin.New()
	r.GET("/roster/:id", as(service.TokenTypeTeacher, 7), func(c *gin.Context) {
		defer close(done)
		h.RosterStream(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/roster/" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	return &rosterStream{conn: conn, done: done}
}

type rosterFrame struct {
	Event     ws.Event          `json:"event"`
	Error     string            `json:"error"`
	Session   model.SessionView `json:"session"`
	Attendees []model.Attendee  `json:"attendees"`
	Count     int               `json:"count"`
	Attendee  *model.Attendee   `json:"attendee"`
}

func (s *rosterStream) next(t *testing.T) rosterFrame {
	t.Helper()
	require.NoError(t, s.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := s.conn.ReadMessage()
	require.NoError(t, err)
	var f rosterFrame
	require.NoError(t, json.Unmarshal(data, &f), string(data))
	return f
}

// until skips poll refreshes and other frames until event arrives.
func (s *rosterStream) until(t *testing.T, event ws.Event) rosterFrame {
	t.Helper()
	for i := 0; i < 50; i++ {
		if f := s.next(t); f.Event == event {
			return f
		}
	}
	t.Fatalf("no %s frame received", event)
	return rosterFrame{}
}

func (s *rosterStream) send(t *testing.T, payload string) {
	t.Helper()
	require.NoError(t, s.conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (s *rosterStream) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("roster handler did not return")
	}
}

func TestRosterStream(t *testing.T) {
	a := newAttendanceRouter(t)
	s := a.start(t)
	stream := dialRoster(t, a, s.ID.String(), 50*time.Millisecond)

	snap := stream.next(t)
	assert.Equal(t, ws.EventSnapshot, snap.Event)
	assert.Equal(t, s.ID, snap.Session.ID)
	assert.Equal(t, model.SessionStatusActive, snap.Session.Status)
	assert.Equal(t, 0, snap.Count)
	assert.Equal(t, s.Pin, snap.Session.Pin)
	assert.Equal(t, 1, a.broker.Subscribers(s.ID))

	w := do(a.student(1), http.MethodPost, "/attendance/submit", gin.H{"pin": s.Pin})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	marked := stream.until(t, ws.EventAttendeeMarked)
	require.NotNil(t, marked.Attendee)
	assert.Equal(t, 1, marked.Attendee.StudentID)
	assert.Equal(t, "Student 1", marked.Attendee.StudentName)

	refresh := stream.until(t, ws.EventRefresh)
	assert.Equal(t, 1, refresh.Count)
	require.Len(t, refresh.Attendees, 1)
	assert.Equal(t, "S1", refresh.Attendees[0].StudentNumber)

	t.Run("malformed frames keep the stream open", func(t *testing.T) {
		stream.send(t, "not json")
		assert.Equal(t, "invalid message", stream.until(t, ws.EventError).Error)

		stream.send(t, `{"action": 7}`)
		assert.Equal(t, "invalid message", stream.until(t, ws.EventError).Error)

		stream.send(t, `{"action":"dance"}`)
		assert.Equal(t, "unknown action: dance", stream.until(t, ws.EventError).Error)

		stream.send(t, `{"action":"ping"}`)
		stream.until(t, ws.EventPong)
	})
}

// A long poll interval keeps refreshes out of the way so the close path is
// driven by the published event alone.
func TestRosterStreamSessionEnded(t *testing.T) {
	a := newAttendanceRouter(t)
	s := a.start(t)
	stream := dialRoster(t, a, s.ID.String(), time.Minute)
	assert.Equal(t, ws.EventSnapshot, stream.next(t).Event)

	w := do(a.student(2), http.MethodPost, "/attendance/submit", gin.H{"pin": s.Pin})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, ws.EventAttendeeMarked, stream.next(t).Event)

	w = do(a.teacher, http.MethodPost, "/sessions/"+s.ID.String()+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, ws.EventSessionEnded, stream.next(t).Event)
	final := stream.next(t)
	assert.Equal(t, ws.EventRefresh, final.Event)
	assert.Equal(t, model.SessionStatusEnded, final.Session.Status)
	assert.Equal(t, 1, final.Count)

	_, _, err := stream.conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	stream.waitDone(t)
	assert.Equal(t, 0, a.broker.Subscribers(s.ID))
}

func TestRosterStreamClientDisconnect(t *testing.T) {
	a := newAttendanceRouter(t)
	s := a.start(t)
	stream := dialRoster(t, a, s.ID.String(), time.Minute)

	assert.Equal(t, ws.EventSnapshot, stream.next(t).Event)

	require.NoError(t, stream.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second),
	))
	stream.conn.Close()

	stream.waitDone(t)
	assert.Equal(t, 0, a.broker.Subscribers(s.ID))
}

func TestRosterStreamClosedSession(t *testing.T) {
	a := newAttendanceRouter(t)
	s := a.start(t)
	a.clock.Advance(16 * time.Minute)

	stream := dialRoster(t, a, s.ID.String(), time.Minute)
	snap := stream.next(t)
	assert.Equal(t, ws.EventSnapshot, snap.Event)
	assert.Equal(t, model.SessionStatusExpired, snap.Session.Status)

	_, _, err := stream.conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	stream.waitDone(t)
}

func TestRosterStreamRejectsBeforeUpgrade(t *testing.T) {
	a := newAttendanceRouter(t)
	s := a.start(t)
	h := NewRosterWSHandler(a.broker, a.sessions, a.attendance, 0, zerolog.Nop(), nil)
	assert.Equal(t, defaultRosterPollInterval, h.pollInterval)

	r := gin.New()
	r.GET("/anon/:id", h.RosterStream)
	r.GET("/other/:id", as(service.TokenTypeTeacher, 8), h.RosterStream)

	w := do(r, http.MethodGet, "/anon/"+s.ID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/other/"+s.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, a.broker.Subscribers(s.ID))
}
