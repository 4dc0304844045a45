//go:build integration

package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"qidscan/internal/capture/models"
	redisstore "qidscan/internal/capture/store/redis"
	"qidscan/pkg/platform/sentinel"
	"qidscan/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redisstore.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func makeSession() *models.Session {
	now := time.Now().UTC()
	return &models.Session{
		ID:        uuid.NewString(),
		Status:    models.StatusPending,
		MobileURL: "http://localhost:8080/capture/x",
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
}

func (s *RedisStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(models.StatusPending, got.Status)
	s.Equal(sess.MobileURL, got.MobileURL)

	ttl, err := s.redis.Client.TTL(ctx, "qidscan:capture:session:"+sess.ID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 5*time.Minute, "retention extends past the session lifetime")
}

func (s *RedisStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), uuid.NewString(), time.Now())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestGetExpired() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	_, err := s.store.Get(ctx, sess.ID, sess.ExpiresAt.Add(time.Second))
	s.ErrorIs(err, sentinel.ErrExpired)
}

func (s *RedisStoreSuite) TestClaimThenSave() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	claimed, err := s.store.Claim(ctx, sess.ID, time.Now())
	s.Require().NoError(err)
	s.Equal(models.StatusProcessing, claimed.Status)

	_, err = s.store.Claim(ctx, sess.ID, time.Now())
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	claimed.Status = models.StatusCompleted
	s.Require().NoError(s.store.Save(ctx, claimed))

	got, err := s.store.Get(ctx, sess.ID, sess.ExpiresAt.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, got.Status)
}

func (s *RedisStoreSuite) TestConcurrentClaimsHaveOneWinner() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	const goroutines = 20
	var wg sync.WaitGroup
	var winners, losers atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Claim(ctx, sess.ID, time.Now())
			switch {
			case err == nil:
				winners.Add(1)
			case err == sentinel.ErrAlreadyUsed:
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(goroutines-1), losers.Load())
}

func (s *RedisStoreSuite) TestSaveUnknown() {
	err := s.store.Save(context.Background(), makeSession())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
