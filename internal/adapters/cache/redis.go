package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Key layout shared by the livestream and webhook stores.
const (
	slotKey          = "livestream:active"
	broadcastFlagKey = "livestream:active_flag"
	sessionKeyFmt    = "livestream:session:%s:start"
	usageKeyFmt      = "livestream:user:%s:total"

	subscriptionsKey = "webhooks:subscriptions"
	eventIndexPrefix = "webhooks:events:"
	deliveryPrefix   = "webhooks:delivery:"
)

func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
