// Package redistest provides an in-memory RedisClient for tests.
package redistest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Fake implements redis.RedisClient over a map. Patterns use path.Match
// semantics, which cover the glob subset the service relies on.
type Fake struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time

	// Err, when set, is returned by every command.
	Err error
}

func NewFake() *Fake {
	return &Fake{data: make(map[string]entry), now: time.Now}
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := f.now()
	f.now = func() time.Time { return base.Add(d) }
}

// Keys returns live keys in sorted order.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if f.liveLocked(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (f *Fake) liveLocked(key string) bool {
	e, ok := f.data[key]
	if !ok {
		return false
	}
	if !e.expiresAt.IsZero() && !f.now().Before(e.expiresAt) {
		delete(f.data, key)
		return false
	}
	return true
}

func (f *Fake) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return f.now().Add(ttl)
}

func (f *Fake) Ping(ctx context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", f.Err)
}

func (f *Fake) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewStringResult("", f.Err)
	}
	if !f.liveLocked(key) {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(f.data[key].value, nil)
}

func (f *Fake) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewStatusResult("", f.Err)
	}
	f.data[key] = entry{value: toString(value), expiresAt: f.expiry(ttl)}
	return goredis.NewStatusResult("OK", nil)
}

func (f *Fake) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewBoolResult(false, f.Err)
	}
	if f.liveLocked(key) {
		return goredis.NewBoolResult(false, nil)
	}
	f.data[key] = entry{value: toString(value), expiresAt: f.expiry(ttl)}
	return goredis.NewBoolResult(true, nil)
}

func (f *Fake) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewIntResult(0, f.Err)
	}
	var n int64
	for _, k := range keys {
		if f.liveLocked(k) {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *Fake) Exists(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewIntResult(0, f.Err)
	}
	var n int64
	for _, k := range keys {
		if f.liveLocked(k) {
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

// Scan returns every match in a single page.
func (f *Fake) Scan(ctx context.Context, cursor uint64, match string, count int64) *goredis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return goredis.NewScanCmdResult(nil, 0, f.Err)
	}
	var keys []string
	for k := range f.data {
		if ok, _ := path.Match(match, k); ok && f.liveLocked(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return goredis.NewScanCmdResult(keys, 0, nil)
}

func (f *Fake) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}
