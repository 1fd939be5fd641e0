package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/cache"
)

const replyKeyPrefix = "reply"

type cachedReply struct {
	Message   string `json:"message"`
	QueryType string `json:"queryType,omitempty"`
}

// responseCache stores finished replies per session and normalised message.
type responseCache struct {
	client cache.Client
	ttl    time.Duration
}

func replyKey(sessionID, message string) string {
	return cache.Key(replyKeyPrefix, sessionID, strings.ToLower(strings.TrimSpace(message)))
}

func (c *responseCache) get(ctx context.Context, sessionID, message string) (*cachedReply, bool, error) {
	data, err := c.client.Get(ctx, replyKey(sessionID, message))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r cachedReply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

func (c *responseCache) set(ctx context.Context, sessionID, message string, r cachedReply) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, replyKey(sessionID, message), data, c.ttl)
}
