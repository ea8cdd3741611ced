package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings. Prefix namespaces every key and
// channel so several deployments can share one server.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Client implements both the cache and the pub/sub interfaces on one
// connection pool.
type Client struct {
	client *goredis.Client
	prefix string
}

// NewClient connects and pings the server.
func NewClient(cfg Config) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{client: client, prefix: cfg.Prefix}, nil
}

func (r *Client) Close() error { return r.client.Close() }

func (r *Client) key(k string) string { return r.prefix + k }

func (r *Client) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = r.key(k)
	}
	return out
}

// ---- KV ----

func (r *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Client) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, r.keys(keys)...).Err()
}

// ---- Hash ----

// ReplaceHash swaps the whole hash inside MULTI/EXEC so readers see either
// the old or the new snapshot.
func (r *Client) ReplaceHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, k)
		if len(fields) == 0 {
			return nil
		}
		args := make([]interface{}, 0, 2*len(fields))
		for f, v := range fields {
			args = append(args, f, v)
		}
		p.HSet(ctx, k, args...)
		if ttl > 0 {
			p.Expire(ctx, k, ttl)
		}
		return nil
	})
	return err
}

func (r *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, r.key(key)).Result()
}

// ---- List ----

// PushCapped runs LPUSH and LTRIM in one transaction.
func (r *Client) PushCapped(ctx context.Context, key, value string, limit int64) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.LPush(ctx, k, value)
		if limit > 0 {
			p.LTrim(ctx, k, 0, limit-1)
		}
		return nil
	})
	return err
}

func (r *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return r.client.LRange(ctx, r.key(key), start, stop).Result()
}

// ---- PubSub ----

// Message is the message type returned by Subscribe, with the namespace
// prefix already stripped from the channel.
type Message struct {
	Channel string
	Payload string
}

func (r *Client) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, r.key(channel), message).Err()
}

// Subscribe waits for the subscription to be confirmed so that messages
// published right after it returns are not lost.
func (r *Client) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ps := r.client.Subscribe(ctx, r.keys(channels)...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}
	ch := make(chan *Message, 256)

	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ch <- &Message{Channel: strings.TrimPrefix(msg.Channel, r.prefix), Payload: msg.Payload}
		}
	}()

	cancel := func() {
		_ = ps.Close()
	}
	return ch, cancel, nil
}
