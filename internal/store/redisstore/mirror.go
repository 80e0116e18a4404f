package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
)

const defaultPrefix = "assessment"

// Mirror keeps sessions and histories in Redis with a sliding TTL. A sorted set ordered
// by mirror time indexes the sessions for listing.
type Mirror struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func New(rdb *redis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Mirror{rdb: rdb, ttl: ttl, prefix: defaultPrefix}
}

func (m *Mirror) sessionKey(id string) string { return m.prefix + ":session:" + id }
func (m *Mirror) messagesKey(id string) string { return m.prefix + ":messages:" + id }
func (m *Mirror) indexKey() string { return m.prefix + ":sessions" }

func (m *Mirror) SaveSession(ctx context.Context, s assessment.Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, m.sessionKey(s.ID), b, m.ttl)
		p.ZAdd(ctx, m.indexKey(), redis.Z{Score: float64(time.Now().UnixMilli()), Member: s.ID})
		p.Expire(ctx, m.messagesKey(s.ID), m.ttl)
		return nil
	})
	return err
}

func (m *Mirror) SaveMessages(ctx context.Context, sessionID string, msgs []assessment.Message) error {
	vals, err := encodeMessages(msgs)
	if err != nil {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		key := m.messagesKey(sessionID)
		p.Del(ctx, key)
		if len(vals) > 0 {
			p.RPush(ctx, key, vals...)
			p.Expire(ctx, key, m.ttl)
		}
		return nil
	})
	return err
}

func (m *Mirror) AppendMessages(ctx context.Context, sessionID string, msgs ...assessment.Message) error {
	vals, err := encodeMessages(msgs)
	if err != nil || len(vals) == 0 {
		return err
	}
	_, err = m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		key := m.messagesKey(sessionID)
		p.RPush(ctx, key, vals...)
		p.Expire(ctx, key, m.ttl)
		return nil
	})
	return err
}

func (m *Mirror) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := m.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, m.sessionKey(sessionID), m.messagesKey(sessionID))
		p.ZRem(ctx, m.indexKey(), sessionID)
		return nil
	})
	return err
}

// ListSessions returns the most recently mirrored sessions. Index entries whose session
// key has expired are pruned on the way.
func (m *Mirror) ListSessions(ctx context.Context, limit int) ([]assessment.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := m.rdb.ZRevRange(ctx, m.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []assessment.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = m.sessionKey(id)
	}
	vals, err := m.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]assessment.Session, 0, len(vals))
	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var s assessment.Session
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	if len(stale) > 0 {
		_ = m.rdb.ZRem(ctx, m.indexKey(), stale...).Err()
	}
	return out, nil
}

func (m *Mirror) GetSession(ctx context.Context, sessionID string) (*assessment.Session, error) {
	val, err := m.rdb.Get(ctx, m.sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, assessment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s assessment.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *Mirror) Messages(ctx context.Context, sessionID string) ([]assessment.Message, error) {
	vals, err := m.rdb.LRange(ctx, m.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]assessment.Message, 0, len(vals))
	for _, v := range vals {
		var msg assessment.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}

func encodeMessages(msgs []assessment.Message) ([]any, error) {
	out := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
