package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/internal/domain"
	"postboard/internal/metrics"
)

const token = "ExponentPushToken[abc123]"

func TestIsExpoPushToken(t *testing.T) {
	valid := []string{
		"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]",
		"ExpoPushToken[abc]",
	}
	for _, tok := range valid {
		assert.True(t, IsExpoPushToken(tok), tok)
	}
	invalid := []string{"", "abc", "ExponentPushToken[abc", "fcm:abc]", "ExponentPushToken", "F5741A13-BCDA-434B-A316-5DC0E6FFA94F"}
	for _, tok := range invalid {
		assert.False(t, IsExpoPushToken(tok), tok)
	}
}

func TestBuildMessage(t *testing.T) {
	like := BuildMessage(domain.Notification{PushToken: token, Kind: domain.NotificationLike, ActorUsername: "bob", PostID: "p1"})
	assert.Equal(t, token, like.To)
	assert.Equal(t, "Someone liked your post", like.Title)
	assert.Equal(t, "bob liked your post.", like.Body)
	assert.Equal(t, map[string]string{"type": "like", "postId": "p1", "actorUsername": "bob"}, like.Data)
	assert.Equal(t, "default", like.Sound)

	comment := BuildMessage(domain.Notification{PushToken: token, Kind: domain.NotificationComment, ActorUsername: "bob", PostID: "p1"})
	assert.Equal(t, "New comment on your post", comment.Title)
	assert.Equal(t, "bob commented on your post.", comment.Body)
	assert.Equal(t, "comment", comment.Data["type"])
}

type sentMessage struct {
	To    []string          `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
	Sound string            `json:"sound"`
}

func TestExpoSender(t *testing.T) {
	var got []sentMessage
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"status":"ok","id":"ticket-1"}]}`))
	}))
	defer srv.Close()

	sender := NewExpoSender(srv.Client(), srv.URL+"/--/api/v2/push/send", "access")
	msg := BuildMessage(domain.Notification{PushToken: token, Kind: domain.NotificationLike, ActorUsername: "bob", PostID: "p1"})
	require.NoError(t, sender.Send(context.Background(), msg))

	require.Len(t, got, 1)
	assert.Equal(t, []string{token}, got[0].To)
	assert.Equal(t, msg.Title, got[0].Title)
	assert.Equal(t, msg.Body, got[0].Body)
	assert.Equal(t, msg.Data, got[0].Data)
	assert.Equal(t, "default", got[0].Sound)
	assert.Equal(t, "Bearer access", auth)
	assert.Equal(t, "/--/api/v2/push/send", path)
}

func TestSplitExpoEndpoint(t *testing.T) {
	host, api := splitExpoEndpoint("")
	assert.Equal(t, "https://exp.host", host)
	assert.Equal(t, "/--/api/v2", api)

	host, api = splitExpoEndpoint(DefaultExpoEndpoint)
	assert.Equal(t, "https://exp.host", host)
	assert.Equal(t, "/--/api/v2", api)

	host, api = splitExpoEndpoint("http://127.0.0.1:9000/push/v3/push/send/")
	assert.Equal(t, "http://127.0.0.1:9000", host)
	assert.Equal(t, "/push/v3", api)
}

func TestExpoSenderHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := NewExpoSender(srv.Client(), srv.URL+"/--/api/v2/push/send", "").Send(ctx, Message{To: token})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExpoSenderErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"ticket error", http.StatusOK, `{"data":[{"status":"error","message":"gone","details":{"error":"DeviceNotRegistered"}}]}`},
		{"request error", http.StatusOK, `{"errors":[{"code":"VALIDATION_ERROR","message":"bad"}]}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"no tickets", http.StatusOK, `{"data":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewExpoSender(srv.Client(), srv.URL+"/--/api/v2/push/send", "").Send(context.Background(), Message{To: token})
			assert.Error(t, err)
		})
	}

	err := NewExpoSender(nil, "http://127.0.0.1:0", "").Send(context.Background(), Message{To: "nope"})
	assert.ErrorIs(t, err, ErrInvalidPushToken)
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []Message
	err   error
	block chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *fakeObserver) ObserveNotification(kind, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

func (o *fakeObserver) SetQueueDepth(int) {}

func (o *fakeObserver) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestDispatcherDeliversAndDrainsOnShutdown(t *testing.T) {
	sender := &recordingSender{}
	obs := &fakeObserver{}
	d := NewDispatcher(Config{Workers: 2, QueueSize: 16, Logger: quietLogger(), Observer: obs}, sender)
	require.NoError(t, d.Start(context.Background()))

	for i := 0; i < 10; i++ {
		assert.True(t, d.Dispatch(domain.Notification{PushToken: token, Kind: domain.NotificationLike, ActorUsername: "bob", PostID: "p"}))
	}
	d.Shutdown()

	assert.Equal(t, 10, sender.count())
	assert.Equal(t, 10, obs.get(metrics.OutcomeSent))
	assert.False(t, d.Dispatch(domain.Notification{PushToken: token}))
	assert.Equal(t, 1, obs.get(metrics.OutcomeDropped))
	assert.Error(t, d.Start(context.Background()))
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	obs := &fakeObserver{}
	d := NewDispatcher(Config{Workers: 1, QueueSize: 1, Logger: quietLogger(), Observer: obs}, sender)
	require.NoError(t, d.Start(context.Background()))

	n := domain.Notification{PushToken: token, Kind: domain.NotificationComment}
	require.True(t, d.Dispatch(n))
	// wait until the single worker holds the first message
	require.Eventually(t, func() bool { return len(d.(*dispatcher).queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, d.Dispatch(n))

	start := time.Now()
	assert.False(t, d.Dispatch(n))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, obs.get(metrics.OutcomeDropped))

	close(sender.block)
	d.Shutdown()
	assert.Equal(t, 2, sender.count())
}

func TestDispatcherCountsFailuresAndSkips(t *testing.T) {
	obs := &fakeObserver{}
	failing := &recordingSender{err: errors.New("boom")}
	d := NewDispatcher(Config{Workers: 1, Logger: quietLogger(), Observer: obs}, failing)
	require.NoError(t, d.Start(context.Background()))
	d.Dispatch(domain.Notification{PushToken: token})
	d.Shutdown()
	assert.Equal(t, 1, obs.get(metrics.OutcomeFailed))

	obs = &fakeObserver{}
	d = NewDispatcher(Config{Workers: 1, Logger: quietLogger(), Observer: obs}, NewExpoSender(nil, "http://127.0.0.1:0", ""))
	require.NoError(t, d.Start(context.Background()))
	d.Dispatch(domain.Notification{PushToken: "not-a-token"})
	d.Shutdown()
	assert.Equal(t, 1, obs.get(metrics.OutcomeSkipped))
}

func TestDispatcherSurvivesCancelledStartContext(t *testing.T) {
	sender := &recordingSender{}
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(Config{Workers: 1, Logger: quietLogger()}, sender)
	require.NoError(t, d.Start(ctx))
	cancel()

	assert.True(t, d.Dispatch(domain.Notification{PushToken: token}))
	d.Shutdown()
	assert.Equal(t, 1, sender.count())
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	require.NoError(t, LogSender{Logger: logger}.Send(context.Background(), Message{To: token, Title: "t"}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, token, hook.LastEntry().Data["to"])
}
