// Package redisstore keeps the durable Google credential per external
// subject. The record is the provider's token response as JSON; this service
// only ever checks existence and writes whole records.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

var ErrNotFound = errors.New("credential not found")

type Config struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type CredentialStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func New(ctx context.Context, cfg Config) (*CredentialStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &CredentialStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewWithClient wraps a pre-configured client; used by tests with miniredis.
func NewWithClient(client redis.UniversalClient, keyPrefix string) *CredentialStore {
	return &CredentialStore{client: client, keyPrefix: keyPrefix}
}

func (s *CredentialStore) key(subjectID string) string {
	return s.keyPrefix + "credential:" + subjectID
}

func (s *CredentialStore) Exists(ctx context.Context, subjectID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(subjectID)).Result()
	if err != nil {
		return false, fmt.Errorf("credential exists: %w", err)
	}
	return n > 0, nil
}

func (s *CredentialStore) Get(ctx context.Context, subjectID string) (*oauth2.Token, error) {
	data, err := s.client.Get(ctx, s.key(subjectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential get: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("credential unmarshal: %w", err)
	}
	return &tok, nil
}

// Put writes the whole record in one SET, so a failed exchange can never
// leave a partial credential behind.
func (s *CredentialStore) Put(ctx context.Context, subjectID string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("credential marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(subjectID), data, 0).Err(); err != nil {
		return fmt.Errorf("credential put: %w", err)
	}
	return nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *CredentialStore) Close() error { return s.client.Close() }
