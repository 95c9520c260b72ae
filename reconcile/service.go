package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/lending_backend/config"
	"github.com/mmdatafocus/lending_backend/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	recomputeLockTTL = 10 * time.Second
	lockRetryBackoff = 100 * time.Millisecond
	lockRetryLimit   = 20
)

// Reconciler produces a fresh record; *Engine is the production implementation.
type Reconciler interface {
	Reconcile(ctx context.Context, req VerificationRequest) (Record, error)
}

// Service fronts the engine with the in-process cache, per-key request
// de-duplication and, when redis is connected, a shared L2 cache.
type Service struct {
	engine    Reconciler
	cache     *ResponseCache
	group     singleflight.Group
	lockRetry redislock.RetryStrategy
	logger    *logrus.Logger
}

// l2Entry is the shared cache payload. ComputedAt carries the original insertion
// time across instances so the TTL is measured from computation.
type l2Entry struct {
	Record     Record    `json:"record"`
	ComputedAt time.Time `json:"computedAt"`
}

func NewService(engine Reconciler, cache *ResponseCache, logger *logrus.Logger) *Service {
	if cache == nil {
		cache = NewResponseCache(DefaultCacheTTL)
	}
	return &Service{
		engine:    engine,
		cache:     cache,
		lockRetry: redislock.LimitRetry(redislock.LinearBackoff(lockRetryBackoff), lockRetryLimit),
		logger:    logger,
	}
}

// Status returns the cached record for the request's key or computes it once.
// Errors are never cached; not-ready records are.
func (s *Service) Status(ctx context.Context, req VerificationRequest) (Record, error) {
	key := NewCacheKey(req)
	if rec, ok := s.cache.Get(key); ok {
		return rec, nil
	}

	// Followers share the leader's result, so a leader whose client disconnects
	// must not cancel the work for everyone else.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		if rec, ok := s.cache.Get(key); ok {
			return rec, nil
		}
		entry, err := s.load(shared, req, key)
		if err != nil {
			return Record{}, err
		}
		s.cache.PutAt(key, entry.Record, entry.ComputedAt)
		return entry.Record, nil
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

func (s *Service) load(ctx context.Context, req VerificationRequest, key CacheKey) (l2Entry, error) {
	redisKey := key.String()
	if entry, ok := s.readL2(ctx, redisKey); ok {
		return entry, nil
	}

	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, redisKey+":lock", recomputeLockTTL, &redislock.Options{
			RetryStrategy: s.lockRetry,
		})
		switch {
		case err == nil:
			defer func() {
				if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
					s.logWarn(ctx, "load", "releasing recompute lock", req, err)
				}
			}()
			// Another instance may have stored the record while we waited.
			if entry, ok := s.readL2(ctx, redisKey); ok {
				return entry, nil
			}
		case errors.Is(err, redislock.ErrNotObtained):
			// Recompute anyway; reconciliation is a side-effect free read.
		default:
			s.logWarn(ctx, "load", "obtaining recompute lock", req, err)
		}
	}

	rec, err := s.engine.Reconcile(ctx, req)
	if err != nil {
		return l2Entry{}, err
	}
	entry := l2Entry{Record: rec, ComputedAt: s.cache.now()}
	if err := config.SetRedisObject(ctx, redisKey, entry, s.cache.TTL()); err != nil {
		s.logWarn(ctx, "load", "writing l2 cache", req, err)
	}
	return entry, nil
}

// readL2 returns the shared entry while it is younger than the cache TTL.
func (s *Service) readL2(ctx context.Context, redisKey string) (l2Entry, bool) {
	var entry l2Entry
	ok, err := config.GetRedisObject(ctx, redisKey, &entry)
	if err != nil {
		config.LogWarn(s.logger, "reconcile/service.go", "readL2", "reading l2 cache", redisKey, err)
		return l2Entry{}, false
	}
	if !ok || entry.ComputedAt.IsZero() || s.cache.Age(entry.ComputedAt) >= s.cache.TTL() {
		return l2Entry{}, false
	}
	return entry, true
}

func (s *Service) logWarn(ctx context.Context, funcName string, msg string, req VerificationRequest, err error) {
	config.LogWarn(s.logger, "reconcile/service.go", funcName, msg, requestLogData(ctx, req), err)
}

func requestLogData(ctx context.Context, req VerificationRequest) map[string]string {
	data := map[string]string{
		"loanId": req.LoanId,
		"caller": req.CallerAddress,
		"scope":  req.Scope.String(),
	}
	if id, ok := utils.GetCorrelationIdFromContext(ctx); ok && id != "" {
		data["correlationId"] = id
	}
	return data
}
