// Package cache keeps JSON copies of public read views in Redis. Every entry is
// registered under one or more tags so a mutation can drop all views it affects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	TagCategories = "categories"
	TagEvents     = "events"
	TagCards      = "cards"
	TagContent    = "content"
)

const keyPrefix = "seva:view:"
const tagPrefix = "seva:tag:"

// genPrefix keys a per-tag counter bumped on every invalidation. A view loaded
// under an older generation is not written back.
const genPrefix = "seva:gen:"

var errStale = errors.New("cache: tag generation moved")

// Views is safe for concurrent use. A nil *Views, or one built without a client,
// misses every lookup and ignores writes.
type Views struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, ttl time.Duration) *Views {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Views{client: client, ttl: ttl}
}

func (v *Views) enabled() bool { return v != nil && v.client != nil }

// Get decodes the cached view into dst. It reports false on a miss or on any
// Redis error; callers fall through to the database.
func (v *Views) Get(ctx context.Context, key string, dst any) bool {
	if !v.enabled() {
		return false
	}
	raw, err := v.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.WarnContext(ctx, "cache entry undecodable", "key", key, "err", err)
		return false
	}
	return true
}

// Set stores val under key and registers key with each tag.
func (v *Views) Set(ctx context.Context, key string, val any, tags ...string) {
	if !v.enabled() {
		return
	}
	v.write(ctx, key, val, tags, nil)
}

func genKeys(tags []string) []string {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = genPrefix + t
	}
	return keys
}

// generations snapshots the counters of tags. ok is false when Redis is unusable.
func (v *Views) generations(ctx context.Context, tags []string) (gens []any, ok bool) {
	if !v.enabled() {
		return nil, false
	}
	if len(tags) == 0 {
		return []any{}, true
	}
	gens, err := v.client.MGet(ctx, genKeys(tags)...).Result()
	if err != nil {
		slog.WarnContext(ctx, "cache generation read failed", "err", err)
		return nil, false
	}
	return gens, true
}

func sameGenerations(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// write stores the view inside a WATCH on the tag counters. With want set, the
// write is dropped unless the counters still equal want.
func (v *Views) write(ctx context.Context, key string, val any, tags []string, want []any) {
	raw, err := json.Marshal(val)
	if err != nil {
		slog.WarnContext(ctx, "cache encode failed", "key", key, "err", err)
		return
	}
	keys := genKeys(tags)

	err = v.client.Watch(ctx, func(tx *redis.Tx) error {
		if want != nil && len(keys) > 0 {
			cur, err := tx.MGet(ctx, keys...).Result()
			if err != nil {
				return err
			}
			if !sameGenerations(cur, want) {
				return errStale
			}
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, keyPrefix+key, raw, v.ttl)
			for _, t := range tags {
				p.SAdd(ctx, tagPrefix+t, key)
				p.Expire(ctx, tagPrefix+t, 2*v.ttl)
			}
			return nil
		})
		return err
	}, keys...)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		slog.DebugContext(ctx, "cache write skipped, view invalidated meanwhile", "key", key)
	default:
		slog.WarnContext(ctx, "cache set failed", "key", key, "err", err)
	}
}

// Invalidate bumps the generation of each tag and deletes every view registered
// under it.
func (v *Views) Invalidate(ctx context.Context, tags ...string) error {
	if !v.enabled() {
		return nil
	}
	for _, t := range tags {
		if err := v.client.Incr(ctx, genPrefix+t).Err(); err != nil {
			return fmt.Errorf("bump tag %s: %w", t, err)
		}
		members, err := v.client.SMembers(ctx, tagPrefix+t).Result()
		if err != nil {
			return fmt.Errorf("read tag %s: %w", t, err)
		}
		keys := make([]string, 0, len(members)+1)
		for _, m := range members {
			keys = append(keys, keyPrefix+m)
		}
		keys = append(keys, tagPrefix+t)
		if err := v.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("invalidate tag %s: %w", t, err)
		}
	}
	return nil
}

// Fetch returns the cached view for key or loads, stores and returns it. A view
// whose tags were invalidated while it loaded is returned but not stored.
func Fetch[T any](ctx context.Context, v *Views, key string, tags []string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if v.Get(ctx, key, &out) {
		return out, nil
	}
	gens, ok := v.generations(ctx, tags)
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if ok {
		v.write(ctx, key, out, tags, gens)
	}
	return out, nil
}
