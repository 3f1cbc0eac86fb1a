// Package store keeps run reports and per-switch run locks in Redis.
//
// Keys:
//
//	LLDPSYNC_LAST|<switch>     JSON of the most recent report
//	LLDPSYNC_HISTORY|<switch>  list of report JSON, newest first, capped
//	LLDPSYNC_LOCK|<switch>     hash {holder, acquired, ttl} with EXPIRE
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/lldpsync/pkg/reconcile"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// DefaultHistory is the number of reports kept per switch when Config.History is zero.
const DefaultHistory = 50

// Config selects the Redis instance.
type Config struct {
	Addr     string
	Password string
	DB       int
	History  int
}

// Store wraps a Redis client.
type Store struct {
	client  *redis.Client
	history int64
}

// New creates a store. It does not connect until first use; call Ping to
// check reachability.
func New(cfg Config) *Store {
	history := cfg.History
	if history <= 0 {
		history = DefaultHistory
	}
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), history)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, history int) *Store {
	return &Store{client: client, history: int64(history)}
}

// Ping tests the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func lastKey(sw string) string    { return "LLDPSYNC_LAST|" + sw }
func historyKey(sw string) string { return "LLDPSYNC_HISTORY|" + sw }
func lockKey(sw string) string    { return "LLDPSYNC_LOCK|" + sw }

// SaveReport stores rep as the switch's last report and prepends it to the
// capped history.
func (s *Store) SaveReport(ctx context.Context, rep *reconcile.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, lastKey(rep.Switch), data, 0)
		p.LPush(ctx, historyKey(rep.Switch), data)
		p.LTrim(ctx, historyKey(rep.Switch), 0, s.history-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving report for %s: %w", rep.Switch, err)
	}
	return nil
}

// LastReport returns the most recent report, or nil if none was stored.
func (s *Store) LastReport(ctx context.Context, sw string) (*reconcile.Report, error) {
	data, err := s.client.Get(ctx, lastKey(sw)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading last report for %s: %w", sw, err)
	}
	return decode(data)
}

// History returns up to n reports, newest first. n <= 0 returns all kept.
func (s *Store) History(ctx context.Context, sw string, n int) ([]*reconcile.Report, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n) - 1
	}
	items, err := s.client.LRange(ctx, historyKey(sw), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", sw, err)
	}

	reports := make([]*reconcile.Report, 0, len(items))
	for i, item := range items {
		rep, err := decode([]byte(item))
		if err != nil {
			util.Warnf("store: skipping malformed history entry %d for %s: %v", i, sw, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func decode(data []byte) (*reconcile.Report, error) {
	var rep reconcile.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}
	return &rep, nil
}

// acquireLockScript returns 1 on success, 0 if already locked.
var acquireLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
	return 0
end
redis.call("HSET", key, "holder", ARGV[1], "acquired", ARGV[2], "ttl", ARGV[3])
redis.call("EXPIRE", key, tonumber(ARGV[3]))
return 1
`)

// releaseLockScript returns 1 on success, 0 on holder mismatch, -1 if the
// key does not exist.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 0 then
	return -1
end
local current = redis.call("HGET", key, "holder")
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", key)
return 1
`)

// AcquireLock takes the run lock for sw. It returns util.ErrSwitchLocked if
// another holder has it. The lock expires after ttl.
func (s *Store) AcquireLock(ctx context.Context, sw, holder string, ttl time.Duration) error {
	now := time.Now().UTC().Format(time.RFC3339)
	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	result, err := acquireLockScript.Run(ctx, s.client, []string{lockKey(sw)},
		holder, now, fmt.Sprintf("%d", seconds)).Int()
	if err != nil {
		return fmt.Errorf("acquiring lock for %s: %w", sw, err)
	}
	if result == 0 {
		holder, _, _ := s.LockHolder(ctx, sw)
		return fmt.Errorf("%w: %s held by %s", util.ErrSwitchLocked, sw, holder)
	}
	return nil
}

// ReleaseLock releases the run lock for sw if holder owns it.
func (s *Store) ReleaseLock(ctx context.Context, sw, holder string) error {
	result, err := releaseLockScript.Run(ctx, s.client, []string{lockKey(sw)}, holder).Int()
	if err != nil {
		return fmt.Errorf("releasing lock for %s: %w", sw, err)
	}
	if result == 0 {
		return fmt.Errorf("lock holder mismatch for %s", sw)
	}
	return nil
}

// LockHolder returns the current lock holder and acquisition time.
// Returns ("", zero, nil) if no lock is held.
func (s *Store) LockHolder(ctx context.Context, sw string) (string, time.Time, error) {
	vals, err := s.client.HGetAll(ctx, lockKey(sw)).Result()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("getting lock holder for %s: %w", sw, err)
	}
	if len(vals) == 0 {
		return "", time.Time{}, nil
	}

	acquired := time.Time{}
	if ts, ok := vals["acquired"]; ok {
		acquired, _ = time.Parse(time.RFC3339, ts)
	}
	return vals["holder"], acquired, nil
}
