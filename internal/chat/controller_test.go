package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingua-chat-backend/internal/messages"
	"lingua-chat-backend/internal/quota"
	"lingua-chat-backend/internal/store"
	"lingua-chat-backend/internal/upstream"
)

func newTestController(up upstream.Upstream, limit int) *Controller {
	tracker := quota.New(store.NewMemoryStore(), limit)
	return NewController(up, tracker, store.NewMessageLog(40), messages.Default("en"))
}

func TestSendHappyPath(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"response":"Hi there!"}`)
	}))
	defer server.Close()

	c := newTestController(upstream.NewWebhook(server.URL, time.Second), 50)
	res, err := c.Send(context.Background(), "s1", "en", "Hello")
	require.NoError(t, err)
	assert.Equal(t, KindReply, res.Kind)
	assert.Equal(t, "Hi there!", res.Message.Text)
	assert.Equal(t, 1, calls)

	log := c.History("s1")
	require.Len(t, log, 2)
	assert.Equal(t, store.SenderUser, log[0].Sender)
	assert.Equal(t, "Hello", log[0].Text)
	assert.Equal(t, store.SenderAI, log[1].Sender)
	assert.Equal(t, "Hi there!", log[1].Text)
}

func TestSendDeniedAtLimitMakesNoCall(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	c := newTestController(upstream.NewWebhook(server.URL, time.Second), 1)
	_, err := c.Send(context.Background(), "s1", "en", "first")
	require.NoError(t, err)

	res, err := c.Send(context.Background(), "s1", "en", "second")
	require.NoError(t, err)
	assert.Equal(t, KindLimitReached, res.Kind)
	assert.Equal(t, messages.Default("en").For("en").LimitReached, res.Message.Text)
	assert.Equal(t, 1, calls, "denied submission must not reach the webhook")

	// The denied submission appends only the limit notice, no user entry.
	log := c.History("s1")
	require.Len(t, log, 3)
	assert.Equal(t, store.SenderAI, log[2].Sender)
}

func TestSendUpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestController(upstream.NewWebhook(server.URL, time.Second), 50)
	res, err := c.Send(context.Background(), "s1", "en", "Hello")
	require.NoError(t, err)
	assert.Equal(t, KindStatusError, res.Kind)
	assert.Equal(t, messages.Default("en").For("en").Error, res.Message.Text)
	require.Error(t, res.Err)
}

func TestSendTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := newTestController(upstream.NewWebhook(server.URL, time.Second), 50)
	res, err := c.Send(context.Background(), "s1", "en", "Hello")
	require.NoError(t, err)
	assert.Equal(t, KindTransportError, res.Kind)
	assert.Equal(t, messages.Default("en").For("en").Error, res.Message.Text)
}

func TestSendNotConfigured(t *testing.T) {
	c := newTestController(nil, 50)
	res, err := c.Send(context.Background(), "s1", "en", "Hello")
	require.NoError(t, err)
	assert.Equal(t, KindNotConfigured, res.Kind)
	assert.Equal(t, messages.Default("en").For("en").Error, res.Message.Text)
}

func TestSendEmptyMessageRejected(t *testing.T) {
	c := newTestController(nil, 50)
	_, err := c.Send(context.Background(), "s1", "en", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, c.History("s1"))
}

// blockingUpstream holds Reply open until released, so a second submission
// can be made while one is in flight.
type blockingUpstream struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingUpstream) Reply(ctx context.Context, _ upstream.Outbound) (string, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSendRejectsConcurrentSubmission(t *testing.T) {
	up := &blockingUpstream{entered: make(chan struct{}), release: make(chan struct{})}
	c := newTestController(up, 50)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := c.Send(context.Background(), "s1", "en", "slow one")
		assert.NoError(t, err)
		assert.Equal(t, KindReply, res.Kind)
	}()

	<-up.entered
	_, err := c.Send(context.Background(), "s1", "en", "too soon")
	assert.ErrorIs(t, err, ErrBusy)

	close(up.release)
	wg.Wait()

	// Only the first submission made it into the log.
	log := c.History("s1")
	require.Len(t, log, 2)
	assert.Equal(t, "slow one", log[0].Text)
}

func TestSendLimitTextIsPerLanguage(t *testing.T) {
	tracker := quota.New(store.NewMemoryStore(), 1)
	c := NewController(nil, tracker, store.NewMessageLog(40), messages.Default("ru"))

	_, err := c.Send(context.Background(), "s1", "ru", "раз")
	require.NoError(t, err)
	res, err := c.Send(context.Background(), "s1", "ru", "два")
	require.NoError(t, err)
	assert.Equal(t, KindLimitReached, res.Kind)
	assert.Equal(t, messages.Default("ru").For("ru").LimitReached, res.Message.Text)
}
