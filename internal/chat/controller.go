// Package chat orchestrates one widget submission: quota admission, the
// single upstream call, and the append-only message log that drives the
// UI. Every failure mode ends as a fixed chat message; nothing escapes to
// break the page.
package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingua-chat-backend/internal/messages"
	"lingua-chat-backend/internal/quota"
	"lingua-chat-backend/internal/store"
	"lingua-chat-backend/internal/upstream"
)

// Kind tells tests and logs what actually happened behind the uniform
// user-visible text.
type Kind string

const (
	KindReply          Kind = "reply"
	KindLimitReached   Kind = "limit_reached"
	KindNotConfigured  Kind = "not_configured"
	KindTransportError Kind = "transport_error"
	KindStatusError    Kind = "status_error"
	KindQuotaError     Kind = "quota_error"
	KindEmptyReply     Kind = "empty_reply"
)

var (
	// ErrEmptyMessage rejects blank submissions before they touch the
	// quota.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrBusy rejects a submission while the session already has one in
	// flight, the server-side form of the widget's disabled send button.
	ErrBusy = errors.New("chat: a send is already in flight for this session")
)

// Result is the outcome of one submission. Message is the AI entry that
// was appended to the log; Err carries the internal cause for the error
// kinds and is never shown to the user.
type Result struct {
	Kind    Kind
	Message store.Message
	Err     error
}

type Controller struct {
	upstream upstream.Upstream // nil when neither webhook nor LLM is configured
	quota    *quota.Tracker
	log      *store.MessageLog
	texts    *messages.Catalog

	mu       sync.Mutex
	inflight map[string]bool

	now   func() time.Time
	newID func() string
}

func NewController(up upstream.Upstream, tracker *quota.Tracker, msgLog *store.MessageLog, texts *messages.Catalog) *Controller {
	return &Controller{
		upstream: up,
		quota:    tracker,
		log:      msgLog,
		texts:    texts,
		inflight: make(map[string]bool),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// History returns the session's conversation so far.
func (c *Controller) History(sessionID string) []store.Message {
	return c.log.Get(sessionID)
}

// Send runs one submission through the admit → post → normalize → append
// pipeline. It makes exactly one quota admission attempt and at most one
// HTTP call. The returned Result always carries the appended AI message;
// an error return (ErrEmptyMessage, ErrBusy) means nothing was appended.
func (c *Controller) Send(ctx context.Context, sessionID, lang, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	if !c.acquire(sessionID) {
		return Result{}, ErrBusy
	}
	defer c.release(sessionID)

	texts := c.texts.For(lang)

	admitted, err := c.quota.TryAdmit(ctx, sessionID)
	if err != nil {
		// Fail closed: a broken quota store must not lift the cap.
		log.Printf("[chat] quota store error for session %s: %v", sessionID, err)
		return c.appendAI(sessionID, KindQuotaError, texts.Error, err), nil
	}
	if !admitted {
		return c.appendAI(sessionID, KindLimitReached, texts.LimitReached, nil), nil
	}

	userMsg := store.Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    store.SenderUser,
		Timestamp: c.now(),
	}
	c.log.Append(sessionID, userMsg)

	if c.upstream == nil {
		log.Printf("[chat] no upstream configured, dropping message for session %s", sessionID)
		return c.appendAI(sessionID, KindNotConfigured, texts.Error, nil), nil
	}

	reply, err := c.upstream.Reply(ctx, upstream.Outbound{
		Message:   text,
		Timestamp: userMsg.Timestamp,
		SessionID: sessionID,
	})
	if err != nil {
		var statusErr *upstream.StatusError
		kind := KindTransportError
		if errors.As(err, &statusErr) {
			kind = KindStatusError
		}
		log.Printf("[chat] upstream error for session %s: %v", sessionID, err)
		return c.appendAI(sessionID, kind, texts.Error, err), nil
	}
	if strings.TrimSpace(reply) == "" {
		return c.appendAI(sessionID, KindEmptyReply, texts.Processing, nil), nil
	}
	return c.appendAI(sessionID, KindReply, reply, nil), nil
}

func (c *Controller) appendAI(sessionID string, kind Kind, text string, cause error) Result {
	msg := store.Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    store.SenderAI,
		Timestamp: c.now(),
	}
	c.log.Append(sessionID, msg)
	return Result{Kind: kind, Message: msg, Err: cause}
}

func (c *Controller) acquire(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[sessionID] {
		return false
	}
	c.inflight[sessionID] = true
	return true
}

func (c *Controller) release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, sessionID)
}
