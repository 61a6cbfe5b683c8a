package redis

import (
	"context"
	"sort"
	"strconv"

	"media-courier-bot/internal/domain/ports/repository"
)

var _ repository.ChatRegistry = (*ChatRegistry)(nil)

const savedChatsKey = "saved_chats"

// ChatRegistry stores conversation ids in a redis set.
type ChatRegistry struct {
	client RedisClient
}

func NewChatRegistry(client RedisClient) *ChatRegistry {
	return &ChatRegistry{client: client}
}

func (c *ChatRegistry) Save(ctx context.Context, conv int64) error {
	_, err := c.client.SAdd(ctx, savedChatsKey, strconv.FormatInt(conv, 10))
	return err
}

func (c *ChatRegistry) List(ctx context.Context) ([]int64, error) {
	members, err := c.client.SMembers(ctx, savedChatsKey)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
