package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flyerxpress/internal/checkout"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	sessionPrefix = "checkout_session:"
	donePrefix    = "checkout_done:"
	lockPrefix    = "checkout_lock:"
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Store keeps wizard snapshots in Redis. Snapshots expire after SessionTTL of
// inactivity, so abandoned checkouts clean themselves up.
type Store struct {
	Client     *redis.Client
	SessionTTL time.Duration
	LockTTL    time.Duration
}

func NewStore(client *redis.Client, sessionTTL, lockTTL time.Duration) *Store {
	return &Store{Client: client, SessionTTL: sessionTTL, LockTTL: lockTTL}
}

func (s *Store) Save(ctx context.Context, w *checkout.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal checkout %s: %w", w.ID, err)
	}
	if !w.Terminal() {
		return s.Client.Set(ctx, sessionPrefix+w.ID, data, s.SessionTTL).Err()
	}

	// Finished checkouts move out of the open-session keyspace so their
	// expiry is not reported as abandonment.
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, donePrefix+w.ID, data, s.SessionTTL)
		pipe.Del(ctx, sessionPrefix+w.ID)
		return nil
	})
	return err
}

func (s *Store) Load(ctx context.Context, id string) (*checkout.Wizard, error) {
	data, err := s.Client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		data, err = s.Client.Get(ctx, donePrefix+id).Bytes()
	}
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var w checkout.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal checkout %s: %w", id, err)
	}
	return &w, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, sessionPrefix+id, donePrefix+id).Err()
}

// Lock takes the per-session operation lock. It fails with
// checkout.ErrCheckoutBusy while another operation holds it.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.New().String()
	ok, err := s.Client.SetNX(ctx, lockPrefix+id, token, s.LockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, checkout.ErrCheckoutBusy
	}
	return func() {
		// The caller's context may already be cancelled.
		unlockScript.Run(context.Background(), s.Client, []string{lockPrefix + id}, token)
	}, nil
}
