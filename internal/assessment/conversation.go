package assessment

import (
	"context"
	"errors"
	"strings"

	"github.com/suPer8Hu/assessment-client/internal/logger"
)

const (
	msgSendAccessDenied = "Access denied. You do not have permission to continue this session."
	msgSendNotFound     = "Session not found. Please start a new assessment."
	msgUnavailable      = "The assessment service is temporarily unavailable. Please try again in a moment."
	msgSendFailed       = "Failed to send message. Please try again."
	msgDegraded         = "The assessment service is running with limited functionality. Your message was received, but a full response is not available right now. Please try again shortly."
)

type SendResult struct {
	User      Message
	Assistant *Message
	Degraded  bool
	Fused     *FuseResult
}

// Conversation sends user turns and folds the replies into the state.
type Conversation struct {
	repo   *Repo
	mapper *MessageMapper
	sync   *Synchronizer
	state  *State
	log    *logger.Logger
}

func NewConversation(repo *Repo, mapper *MessageMapper, sync *Synchronizer, state *State, log *logger.Logger) *Conversation {
	if mapper == nil {
		mapper = NewMessageMapper()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Conversation{repo: repo, mapper: mapper, sync: sync, state: state, log: log.With("service", "Conversation")}
}

// Send appends the user's message right away and then waits for the reply. The user
// message stays even if the call fails. Blank text is ignored (nil, nil). A second
// Send on a session with one still in flight gets ErrSendInFlight.
func (c *Conversation) Send(ctx context.Context, sessionID, text string) (*SendResult, error) {
	return c.send(ctx, sessionID, text, true)
}

// resend repeats the backend call for a message that is already on screen.
func (c *Conversation) resend(ctx context.Context, sessionID, text string) (*SendResult, error) {
	return c.send(ctx, sessionID, text, false)
}

func (c *Conversation) send(ctx context.Context, sessionID, text string, optimistic bool) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !c.state.beginSend(sessionID) {
		return nil, ErrSendInFlight
	}
	defer c.state.endSend(sessionID)

	c.state.setError("")
	out := &SendResult{User: c.mapper.UserMessage(text)}
	if optimistic {
		c.state.appendMessage(sessionID, out.User)
	}

	res, err := c.repo.Continue(ctx, sessionID, text)
	if err != nil {
		c.log.Warn("send failed", "session_id", sessionID, "kind", Classify(err).String(), "error", err)
		c.state.setError(sendErrorMessage(err))
		return out, err
	}

	if res.Degraded {
		out.Degraded = true
		c.state.setError(msgDegraded)
		return out, nil
	}

	assistant := res.Assistant
	out.Assistant = &assistant
	c.state.appendMessage(sessionID, assistant)

	var (
		fr FuseResult
		ok bool
	)
	switch {
	case res.Progress != nil:
		fr, ok = c.sync.FuseByID(sessionID, *res.Progress, res.SymptomSummary)
	case res.ProgressFields != nil:
		fr, ok = c.sync.FuseFieldsByID(sessionID, res.ProgressFields, res.SymptomSummary)
	}
	if ok {
		out.Fused = &fr
	}
	return out, nil
}

func sendErrorMessage(err error) string {
	switch Classify(err) {
	case KindAccessDenied:
		return msgSendAccessDenied
	case KindNotFound:
		return msgSendNotFound
	case KindUnavailable:
		return msgUnavailable
	}
	if d := DetailOf(err); d != "" {
		return d
	}
	return msgSendFailed
}

// retryableSend reports whether the user may sensibly repeat a failed send.
func retryableSend(err error) bool {
	if errors.Is(err, ErrSendInFlight) {
		return false
	}
	switch Classify(err) {
	case KindAccessDenied, KindNotFound:
		return false
	}
	return true
}
