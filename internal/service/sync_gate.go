package service

import (
	"bridge4er_backend/pkg/logger"
	"bridge4er_backend/pkg/monitoring"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const autoSyncKeyPrefix = "dropbox_sync:last_run"

// GateStore is the small key-value surface the throttle needs: cooldown
// timestamps and content signatures with a TTL. It is a best-effort
// de-duplication mechanism, not a lock; two requests racing past the gate is
// accepted because the sync passes themselves are idempotent.
type GateStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisGateStore backs the gate with Redis so the cooldown spans processes.
type RedisGateStore struct {
	Client *redis.Client
}

func (s *RedisGateStore) GetString(ctx context.Context, key string) (string, bool, error) {
	value, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisGateStore) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

type memoryGateEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryGateStore is the in-process fallback when Redis is disabled. The Now
// hook exists so tests can control expiry.
type MemoryGateStore struct {
	mu      sync.Mutex
	entries map[string]memoryGateEntry
	Now     func() time.Time
}

func NewMemoryGateStore() *MemoryGateStore {
	return &MemoryGateStore{
		entries: make(map[string]memoryGateEntry),
		Now:     time.Now,
	}
}

func (s *MemoryGateStore) GetString(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryGateStore) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = memoryGateEntry{value: value, expiresAt: expiresAt}
	return nil
}

// AutoSyncOptions select which trees one gated sync attempt covers.
type AutoSyncOptions struct {
	Branch          string
	SyncObjective   bool
	SyncExamSets    bool
	ReplaceExisting bool
	CooldownSeconds int
}

// AutoSyncResult reports one gated attempt: ok (a sync ran), skipped (with
// reason cooldown, no_changes, or nothing_requested), or error.
type AutoSyncResult struct {
	Status    string                `json:"status"`
	Reason    string                `json:"reason,omitempty"`
	Branch    string                `json:"branch,omitempty"`
	Objective *ObjectiveSyncSummary `json:"objective,omitempty"`
	ExamSets  *ExamSetsSyncResult   `json:"examSets,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// SyncGate wraps the reconciliation engine with a cooldown plus a remote
// content signature, so read-heavy endpoints can trigger sync-if-stale checks
// without hammering the remote store.
type SyncGate struct {
	engine *SyncService
	store  GateStore
	now    func() time.Time
}

func NewSyncGate(engine *SyncService, store GateStore) *SyncGate {
	return &SyncGate{engine: engine, store: store, now: time.Now}
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// AutoSync runs the requested syncs unless the cooldown is still active or the
// remote content signature is unchanged. The cooldown timestamp is written
// before the remote listing, so concurrent callers in the same window skip
// instead of fanning out duplicate scans. The signature is persisted only
// after a fully successful run; a failed run leaves the old signature so the
// next call retries.
func (g *SyncGate) AutoSync(ctx context.Context, opts AutoSyncOptions) *AutoSyncResult {
	if !opts.SyncObjective && !opts.SyncExamSets {
		return &AutoSyncResult{Status: "skipped", Reason: "nothing_requested"}
	}

	keySeed := opts.Branch + "|" + boolFlag(opts.SyncObjective) + "|" + boolFlag(opts.SyncExamSets) + "|" + boolFlag(opts.ReplaceExisting)
	seedSum := sha1.Sum([]byte(keySeed))
	cacheKey := autoSyncKeyPrefix + ":" + hex.EncodeToString(seedSum[:])
	sigKey := cacheKey + ":signature"

	cooldown := opts.CooldownSeconds
	if cooldown < 5 {
		cooldown = 5
	}
	now := g.now()

	if lastRaw, ok, err := g.store.GetString(ctx, cacheKey); err != nil {
		// A broken gate store must not block syncing; fall through as a miss.
		logger.Log.Warn("sync gate store read failed", zap.Error(err))
	} else if ok {
		if last, parseErr := strconv.ParseFloat(lastRaw, 64); parseErr == nil {
			if now.Sub(time.Unix(0, int64(last*float64(time.Second)))) < time.Duration(cooldown)*time.Second {
				monitoring.SyncRuns.WithLabelValues(opts.Branch, "cooldown").Inc()
				return &AutoSyncResult{Status: "skipped", Reason: "cooldown"}
			}
		}
	}

	stamp := strconv.FormatFloat(float64(now.UnixNano())/float64(time.Second), 'f', 6, 64)
	if err := g.store.SetString(ctx, cacheKey, stamp, time.Duration(cooldown)*time.Second); err != nil {
		logger.Log.Warn("sync gate store write failed", zap.Error(err))
	}

	signatures := map[string]string{}
	var sigErr error
	addSignature := func(label, root string) {
		if sigErr != nil {
			return
		}
		signature, err := g.engine.FolderSignature(ctx, root)
		if err != nil {
			sigErr = err
			return
		}
		signatures[label] = signature
	}
	if opts.SyncObjective {
		addSignature("objective", g.engine.objectiveRoot(opts.Branch))
	}
	if opts.SyncExamSets {
		addSignature("exam_mcq", g.engine.examRoot(opts.Branch, "mcq"))
		addSignature("exam_subjective", g.engine.examRoot(opts.Branch, "subjective"))
	}
	if sigErr != nil {
		monitoring.SyncRuns.WithLabelValues(opts.Branch, "error").Inc()
		return &AutoSyncResult{Status: "error", Branch: opts.Branch, Error: sigErr.Error()}
	}

	encoded, err := json.Marshal(signatures)
	if err != nil {
		return &AutoSyncResult{Status: "error", Branch: opts.Branch, Error: err.Error()}
	}
	combinedSum := sha1.Sum(encoded)
	currentSignature := hex.EncodeToString(combinedSum[:])

	if previous, ok, err := g.store.GetString(ctx, sigKey); err != nil {
		logger.Log.Warn("sync gate store read failed", zap.Error(err))
	} else if ok && previous == currentSignature {
		monitoring.SyncRuns.WithLabelValues(opts.Branch, "no_changes").Inc()
		return &AutoSyncResult{Status: "skipped", Reason: "no_changes"}
	}

	result := &AutoSyncResult{Status: "ok", Branch: opts.Branch}
	if opts.SyncObjective {
		objective, err := g.engine.SyncObjectiveBank(ctx, opts.Branch, opts.ReplaceExisting)
		if err != nil {
			monitoring.SyncRuns.WithLabelValues(opts.Branch, "error").Inc()
			result.Status = "error"
			result.Error = err.Error()
			return result
		}
		result.Objective = objective
	}
	if opts.SyncExamSets {
		examSets, err := g.engine.SyncExamSets(ctx, opts.Branch, opts.ReplaceExisting)
		if err != nil {
			monitoring.SyncRuns.WithLabelValues(opts.Branch, "error").Inc()
			result.Status = "error"
			result.Error = err.Error()
			return result
		}
		result.ExamSets = examSets
	}

	if err := g.store.SetString(ctx, sigKey, currentSignature, 24*time.Hour); err != nil {
		logger.Log.Warn("sync gate signature write failed", zap.Error(err))
	}
	monitoring.SyncRuns.WithLabelValues(opts.Branch, "ok").Inc()
	return result
}
