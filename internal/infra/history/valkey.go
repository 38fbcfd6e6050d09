package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/dkoval/ragchat/internal/domain/chat"
)

// ValkeyStore keeps conversation transcripts as a Valkey list per
// session, with a TTL so abandoned sessions expire on their own.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "ragchat:history"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) key(sessionID uuid.UUID) string {
	return s.prefix + ":" + sessionID.String()
}

func (s *ValkeyStore) Append(ctx context.Context, msg chat.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	encoded, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := s.key(msg.SessionID)
	if err := s.client.Do(ctx, s.client.B().Rpush().Key(key).Element(string(encoded)).Build()).Error(); err != nil {
		return err
	}
	return s.client.Do(ctx, s.client.B().Expire().Key(key).Seconds(int64(s.ttl.Seconds())).Build()).Error()
}

func (s *ValkeyStore) ListRecent(ctx context.Context, sessionID uuid.UUID, budget int) ([]chat.Message, error) {
	resp := s.client.Do(ctx, s.client.B().Lrange().Key(s.key(sessionID)).Start(0).Stop(-1).Build())
	raws, err := resp.AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}

	msgs := make([]chat.Message, 0, len(raws))
	for _, raw := range raws {
		var msg chat.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	if budget <= 0 {
		return msgs, nil
	}

	// walk backwards until the token budget is spent
	totalTokens := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		tokens := msgs[i].TokenCount
		if tokens < 0 {
			tokens = 0
		}
		if totalTokens+tokens > budget {
			break
		}
		totalTokens += tokens
		start = i
	}
	return msgs[start:], nil
}

func (s *ValkeyStore) Count(ctx context.Context, sessionID uuid.UUID) (int, error) {
	resp := s.client.Do(ctx, s.client.B().Llen().Key(s.key(sessionID)).Build())
	n, err := resp.AsInt64()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	return int(n), nil
}

func (s *ValkeyStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(sessionID)).Build()).Error()
}

var _ chat.HistoryStore = (*ValkeyStore)(nil)
