package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"anonchat/internal/app/directory"
	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/user"
)

type session struct {
	dir      *directory.Badger
	sm       *matchmaking.StateMachine
	hub      *Hub
	relay    *Relay
	teardown *matchmaking.Teardown
}

// newSession wires the transport to an in-memory directory holding the given users.
func newSession(t *testing.T, ids ...user.ID) *session {
	t.Helper()

	dir, err := directory.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	for _, id := range ids {
		require.NoError(t, dir.Register(context.Background(), user.User{ID: id}))
	}

	hub := NewHub()
	sm := matchmaking.NewStateMachine(dir)
	events := matchmaking.NewDispatcher(hub, matchmaking.DispatcherConfig{
		Workers:    1,
		QueueSize:  16,
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		Timeout:    time.Second,
	})
	t.Cleanup(events.Close)

	teardown := matchmaking.NewTeardown(sm, events)

	return &session{
		dir:      dir,
		sm:       sm,
		hub:      hub,
		relay:    NewRelay(sm, teardown, hub),
		teardown: teardown,
	}
}

func (s *session) pair(t *testing.T, a, b user.ID) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.sm.RequestPairing(ctx, a))
	require.NoError(t, s.sm.RequestPairing(ctx, b))
	require.NoError(t, s.sm.Pair(ctx, a, b))
}

func (s *session) connect(t *testing.T, id user.ID) *Client {
	t.Helper()

	c := newTestClient(s.hub, s.relay, id)
	require.NoError(t, s.hub.Register(c, InitDataPayload{UserID: id}))
	require.Equal(t, TypeInitData, nextFrame(t, c).Type)
	return c
}

func (s *session) state(t *testing.T, id user.ID) user.State {
	t.Helper()

	u, err := s.dir.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u.State
}

func Test_Relay_Forward_To_Partner(t *testing.T) {
	req := require.New(t)
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")
	b := s.connect(t, "b")

	msg, err := NewMessage(TypeText, TextPayload{Content: "hello"})
	req.NoError(err)

	req.NoError(s.relay.Forward(context.Background(), "a", msg))

	got := nextFrame(t, b)
	req.Equal(msg.ID, got.ID)
	req.Equal(TypeText, got.Type)

	var payload TextPayload
	req.NoError(json.Unmarshal(got.Payload, &payload))
	req.Equal("hello", payload.Content)
}

func Test_Relay_Forward_Without_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newSession(t, "a")
	msg, _ := NewMessage(TypeText, TextPayload{Content: "hello"})

	req.ErrorIs(s.relay.Forward(ctx, "a", msg), ErrNotInSession)

	req.NoError(s.sm.RequestPairing(ctx, "a"))
	req.ErrorIs(s.relay.Forward(ctx, "a", msg), ErrNotInSession)

	req.ErrorIs(s.relay.Forward(ctx, "ghost", msg), matchmaking.ErrUserNotFound)
}

func Test_Relay_Forward_After_Session_Ended(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")
	b := s.connect(t, "b")

	_, err := s.teardown.EndSession(ctx, "b")
	req.NoError(err)

	msg, _ := NewMessage(TypeText, TextPayload{Content: "still there?"})
	req.ErrorIs(s.relay.Forward(ctx, "a", msg), ErrNotInSession)
	requireNoFrame(t, b)
}

func Test_Relay_Offline_Partner_Ends_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")

	msg, _ := NewMessage(TypeText, TextPayload{Content: "hello"})
	req.ErrorIs(s.relay.Forward(ctx, "a", msg), ErrPartnerGone)

	req.Equal(user.StateIdle, s.state(t, "a"))
	req.Equal(user.StateIdle, s.state(t, "b"))

	req.ErrorIs(s.relay.Forward(ctx, "a", msg), ErrNotInSession)
}

func Test_Relay_Slow_Partner_Keeps_Session(t *testing.T) {
	req := require.New(t)
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")
	a := s.connect(t, "a")

	// b's queue holds only the INIT_DATA frame it was never able to drain.
	b := newTestClient(s.hub, s.relay, "b")
	b.send = make(chan []byte, 1)
	req.NoError(s.hub.Register(b, InitDataPayload{UserID: "b"}))

	msg, _ := NewMessage(TypeText, TextPayload{Content: "hello"})
	req.ErrorIs(s.relay.Forward(context.Background(), "a", msg), ErrSendQueueFull)
	req.Equal(user.StatePaired, s.state(t, "a"))
	req.Equal(user.StatePaired, s.state(t, "b"))

	a.processInboundMessage([]byte(`{"type":"TEXT","payload":{"content":"hello"},"tempID":"tmp-1"}`))
	req.Equal(2307, errorCode(t, nextFrame(t, a)))
}

func Test_Client_Text_Roundtrip(t *testing.T) {
	req := require.New(t)
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")
	a := s.connect(t, "a")
	b := s.connect(t, "b")

	a.processInboundMessage([]byte(`{"type":"TEXT","payload":{"content":"hi there"},"tempID":"tmp-1"}`))

	relayed := nextFrame(t, b)
	req.Equal(TypeText, relayed.Type)
	req.NotContains(string(relayed.Payload), `"a"`)

	ack := nextFrame(t, a)
	req.Equal(TypeConfirm, ack.Type)

	var confirm ConfirmPayload
	req.NoError(json.Unmarshal(ack.Payload, &confirm))
	req.Equal("tmp-1", confirm.TempID)
	req.Equal(relayed.ID, confirm.MessageID)
}

func Test_Client_Reports_Relay_Errors(t *testing.T) {
	req := require.New(t)
	s := newSession(t, "a")
	a := s.connect(t, "a")

	a.processInboundMessage([]byte(`{"type":"TEXT","payload":{"content":"anyone?"},"tempID":"tmp-1"}`))
	req.Equal(2305, errorCode(t, nextFrame(t, a)))

	a.processInboundMessage([]byte(`not json`))
	req.Equal(1003, errorCode(t, nextFrame(t, a)))

	a.processInboundMessage([]byte(`{"type":"PING"}`))
	requireNoFrame(t, a)
}

func Test_Client_Attachments(t *testing.T) {
	req := require.New(t)
	s := newSession(t, "a", "b")
	s.pair(t, "a", "b")
	a := s.connect(t, "a")
	b := s.connect(t, "b")

	a.processInboundMessage([]byte(`{"type":"ATTACHMENTS","payload":{"attachments":[
		{"fileKey":"a/1.jpg","fileName":"cat.JPG","mimeType":"image/jpeg","fileSize":10,"meta":{"w":1}},
		{"fileKey":"a/2.ogg","fileName":"hello.ogg","mimeType":"audio/ogg","fileSize":10}
	]}}`))

	relayed := nextFrame(t, b)
	req.Equal(TypeAttachments, relayed.Type)

	var payload AttachmentsPayload
	req.NoError(json.Unmarshal(relayed.Payload, &payload))
	req.Len(payload.Attachments, 2)
	req.Equal(KindPhoto, payload.Attachments[0].Kind)
	req.True(payload.Attachments[0].Spoiler)
	req.Nil(payload.Attachments[0].Meta)
	req.Equal(KindVoice, payload.Attachments[1].Kind)
	req.False(payload.Attachments[1].Spoiler)

	// Keys issued to somebody else are refused.
	a.processInboundMessage([]byte(`{"type":"ATTACHMENTS","payload":{"attachments":[
		{"fileKey":"b/1.jpg","fileName":"cat.jpg","mimeType":"image/jpeg","fileSize":10}
	]}}`))
	req.Equal(2204, errorCode(t, nextFrame(t, a)))

	a.processInboundMessage([]byte(`{"type":"ATTACHMENTS","payload":{"attachments":[]}}`))
	req.Equal(2203, errorCode(t, nextFrame(t, a)))

	requireNoFrame(t, b)
}

func errorCode(t *testing.T, msg Message) int {
	t.Helper()
	require.Equal(t, TypeError, msg.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload.Code
}
