package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"qidscan/internal/capture/models"
	"qidscan/pkg/platform/sentinel"
)

const (
	keyPrefix = "qidscan:capture:session:"
	// retention keeps expired sessions readable long enough to answer 410.
	retention = time.Hour
)

// Store keeps sessions as JSON values with a TTL slightly longer than the
// session lifetime.
type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(id string) string {
	return keyPrefix + id
}

func (s *Store) Create(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt) + retention
	if ttl <= 0 {
		ttl = retention
	}
	ok, err := s.client.SetNX(ctx, key(session.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	session, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if !session.IsTerminal() && session.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	return session, nil
}

// Claim moves a pending session to processing under WATCH so two phones
// cannot both submit. A lost race reports ErrAlreadyUsed.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var claimed *models.Session
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if session.Status != models.StatusPending {
			return sentinel.ErrAlreadyUsed
		}
		if session.IsExpired(now) {
			return sentinel.ErrExpired
		}
		session.Status = models.StatusProcessing
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), data, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		claimed = session
		return nil
	}, key(id))
	if errors.Is(err, redis.TxFailedErr) {
		return nil, sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *Store) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetXX(ctx, key(session.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) load(ctx context.Context, c redis.StringCmdable, id string) (*models.Session, error) {
	data, err := c.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
