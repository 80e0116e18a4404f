package assessment

import (
	"strings"
	"time"

	"github.com/suPer8Hu/assessment-client/internal/common"
)

var (
	messageContentKeys = []string{"content", "message", "text"}
	replyKeys          = []string{"response", "assistant_message", "reply", "message", "content"}
	greetingKeys       = []string{"greeting", "initial_message", "welcome_message", "response", "message"}
)

// MessageMapper turns raw message records into Messages. It never fails: unknown
// shapes degrade to a generated id, the NoContent sentinel and the current time.
type MessageMapper struct {
	NewID func() string
	Now   func() time.Time
}

func NewMessageMapper() *MessageMapper {
	return &MessageMapper{NewID: common.NewMessageID, Now: time.Now}
}

func (m *MessageMapper) Map(raw Payload) Message {
	msg := Message{
		Role:     RoleAssistant,
		Content:  NoContent,
		Metadata: map[string]any{},
	}

	if id := firstString(raw, "id", "message_id"); id != nil {
		msg.ID = *id
	} else {
		msg.ID = m.NewID()
	}

	msg.Role = roleOf(raw)

	for _, k := range messageContentKeys {
		if s, ok := raw[k].(string); ok && strings.TrimSpace(s) != "" {
			msg.Content = s
			break
		}
	}

	if t, ok := firstTimestamp(raw, "timestamp", "created_at", "createdAt", "time"); ok {
		msg.Timestamp = t
	} else {
		msg.Timestamp = m.Now().UTC().Format(time.RFC3339Nano)
	}

	if meta, ok := raw["metadata"].(map[string]any); ok {
		msg.Metadata = meta
	}
	return msg
}

// MapAll maps a history list, skipping entries that are not objects.
func (m *MessageMapper) MapAll(list []any) []Message {
	out := make([]Message, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, m.Map(obj))
	}
	return out
}

// UserMessage builds the optimistic local copy of what the user typed.
func (m *MessageMapper) UserMessage(text string) Message {
	return m.Map(Payload{"role": string(RoleUser), "content": text})
}

// Reply maps the assistant part of a continuation payload. The reply may be a plain
// string under one of several keys or a full message object.
func (m *MessageMapper) Reply(raw Payload) Message {
	return m.assistantFrom(raw, replyKeys)
}

// Greeting maps the opening assistant message of a session-start payload.
func (m *MessageMapper) Greeting(raw Payload) Message {
	return m.assistantFrom(raw, greetingKeys)
}

func (m *MessageMapper) assistantFrom(raw Payload, keys []string) Message {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case map[string]any:
			msg := m.Map(v)
			msg.Role = RoleAssistant
			return msg
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			rec := Payload{
				"id":        raw["message_id"],
				"role":      string(RoleAssistant),
				"content":   v,
				"timestamp": raw["timestamp"],
				"metadata":  raw["metadata"],
			}
			return m.Map(rec)
		}
	}
	return m.Map(Payload{"role": string(RoleAssistant), "metadata": raw["metadata"]})
}

// IsDegraded reports whether a continuation payload carries metadata.degraded_mode.
func IsDegraded(raw Payload) bool {
	if meta, ok := raw["metadata"].(map[string]any); ok {
		if b, ok := toBool(meta["degraded_mode"]); ok && b {
			return true
		}
	}
	b, ok := toBool(raw["degraded_mode"])
	return ok && b
}

func roleOf(raw Payload) Role {
	if b, ok := toBool(raw["is_user"]); ok {
		if b {
			return RoleUser
		}
		return RoleAssistant
	}
	for _, k := range []string{"role", "sender", "type", "author"} {
		s, ok := raw[k].(string)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "user", "human", "patient", "client":
			return RoleUser
		case "assistant", "ai", "bot", "system", "therapist":
			return RoleAssistant
		}
	}
	return RoleAssistant
}

func firstTimestamp(raw Payload, keys ...string) (string, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v, true
			}
		case float64:
			if t, ok := parseTime(v); ok {
				return t.Format(time.RFC3339Nano), true
			}
		}
	}
	return "", false
}
