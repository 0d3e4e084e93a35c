package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"

	secretsDomain "github.com/trustchecker/atrest/internal/secrets/domain"
	"github.com/trustchecker/atrest/internal/secrets/provider"
	customValidation "github.com/trustchecker/atrest/internal/validation"
)

const (
	// DefaultCacheTTL is how long a fetched secret is served from memory.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultRotationCheckInterval is the watcher poll interval.
	DefaultRotationCheckInterval = 60 * time.Second
	// MaxAuditRecords bounds the audit ring.
	MaxAuditRecords = secretsDomain.AuditCapacity
	// preloadConcurrency bounds the number of concurrent provider calls in Preload.
	preloadConcurrency = 4
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Options configures a secrets vault. Zero values select the defaults.
type Options struct {
	CacheTTL              time.Duration
	RotationCheckInterval time.Duration
	Clock                 clock.Clock
}

type secretsVault struct {
	provider SecretsProvider
	logger   *slog.Logger
	clock    clock.Clock
	ttl      time.Duration
	interval time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry

	auditMu sync.Mutex
	audit   []secretsDomain.AuditRecord

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// NewSecretsVault creates a SecretsVault over p.
func NewSecretsVault(p SecretsProvider, opts Options, logger *slog.Logger) SecretsVault {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RotationCheckInterval <= 0 {
		opts.RotationCheckInterval = DefaultRotationCheckInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &secretsVault{
		provider: p,
		logger:   logger,
		clock:    opts.Clock,
		ttl:      opts.CacheTTL,
		interval: opts.RotationCheckInterval,
		cache:    make(map[string]cacheEntry),
		audit:    make([]secretsDomain.AuditRecord, 0, MaxAuditRecords),
	}
}

func (v *secretsVault) Get(ctx context.Context, name string) (string, bool) {
	v.recordAudit(name, secretsDomain.AuditRead)

	v.mu.RLock()
	entry, ok := v.cache[name]
	v.mu.RUnlock()
	if ok && v.clock.Now().Before(entry.expiresAt) {
		return entry.value, true
	}

	value, err := v.fetch(ctx, name)
	if err != nil {
		return "", false
	}

	v.store(name, value)
	return value, true
}

func (v *secretsVault) GetRequired(ctx context.Context, name string) (string, error) {
	value, ok := v.Get(ctx, name)
	if !ok {
		return "", fmt.Errorf("%w: required secret %q not found in %s",
			secretsDomain.ErrSecretNotFound, name, v.provider.Name())
	}
	return value, nil
}

func (v *secretsVault) Set(ctx context.Context, name, value string) error {
	if err := validation.Validate(name, validation.Required, customValidation.NotBlank, customValidation.SecretName); err != nil {
		return fmt.Errorf("%w: %q: %s", secretsDomain.ErrInvalidSecretName, name, err.Error())
	}
	v.recordAudit(name, secretsDomain.AuditWrite)

	if err := v.provider.Set(ctx, name, value); err != nil {
		v.logger.Error("failed to write secret",
			slog.String("key", name),
			slog.String("provider", v.provider.Name()),
			slog.Any("error", err),
		)
		return err
	}

	v.store(name, value)
	return nil
}

func (v *secretsVault) Preload(ctx context.Context) secretsDomain.PreloadResult {
	names := secretsDomain.KnownSecretNames
	found := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for i, name := range names {
		g.Go(func() error {
			_, found[i] = v.Get(gctx, name)
			return nil
		})
	}
	_ = g.Wait()

	result := secretsDomain.PreloadResult{Loaded: []string{}, Missing: []string{}}
	for i, name := range names {
		if found[i] {
			result.Loaded = append(result.Loaded, name)
		} else {
			result.Missing = append(result.Missing, name)
		}
	}

	v.logger.Info("secrets preloaded",
		slog.String("provider", v.provider.Name()),
		slog.Int("loaded", len(result.Loaded)),
		slog.Int("known", len(names)),
	)
	if len(result.Missing) > 0 {
		v.logger.Warn("missing secrets", slog.Any("keys", result.Missing))
	}
	return result
}

func (v *secretsVault) StartRotationWatcher(ctx context.Context) bool {
	if v.provider.Name() == provider.NameEnv {
		return false
	}

	v.watchMu.Lock()
	defer v.watchMu.Unlock()
	if v.watchCancel != nil {
		return true
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	v.watchCancel = cancel
	v.watchDone = done

	go v.watch(ctx, done)

	v.logger.Info("secret rotation watcher started",
		slog.String("provider", v.provider.Name()),
		slog.Duration("interval", v.interval),
	)
	return true
}

func (v *secretsVault) watch(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := v.clock.NewTimer(v.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
			v.CheckRotation(ctx)
			timer.Reset(v.interval)
		}
	}
}

func (v *secretsVault) StopRotationWatcher() {
	v.watchMu.Lock()
	cancel, done := v.watchCancel, v.watchDone
	v.watchCancel, v.watchDone = nil, nil
	v.watchMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (v *secretsVault) CheckRotation(ctx context.Context) int {
	v.mu.RLock()
	names := make([]string, 0, len(v.cache))
	for name := range v.cache {
		names = append(names, name)
	}
	v.mu.RUnlock()
	sort.Strings(names)

	rotated := 0
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}

		fresh, err := v.fetch(ctx, name)
		if err != nil {
			continue
		}

		v.mu.Lock()
		entry, ok := v.cache[name]
		changed := ok && entry.value != fresh
		if changed {
			v.cache[name] = cacheEntry{value: fresh, expiresAt: v.clock.Now().Add(v.ttl)}
		}
		v.mu.Unlock()

		if changed {
			rotated++
			v.recordAudit(name, secretsDomain.AuditRotationDetected)
			v.logger.Info("secret rotated", slog.String("key", name), slog.String("provider", v.provider.Name()))
		}
	}
	return rotated
}

func (v *secretsVault) ClearCache() {
	v.mu.Lock()
	v.cache = make(map[string]cacheEntry)
	v.mu.Unlock()
}

func (v *secretsVault) AuditLog() []secretsDomain.AuditRecord {
	v.auditMu.Lock()
	defer v.auditMu.Unlock()
	out := make([]secretsDomain.AuditRecord, len(v.audit))
	copy(out, v.audit)
	return out
}

func (v *secretsVault) Status() secretsDomain.Status {
	v.mu.RLock()
	cached := len(v.cache)
	v.mu.RUnlock()

	v.watchMu.Lock()
	watching := v.watchCancel != nil
	v.watchMu.Unlock()

	v.auditMu.Lock()
	auditEntries := len(v.audit)
	v.auditMu.Unlock()

	return secretsDomain.Status{
		Provider:              v.provider.Name(),
		CachedSecrets:         cached,
		RotationWatcherActive: watching,
		KnownKeys:             len(secretsDomain.KnownSecretNames),
		AuditEntries:          auditEntries,
	}
}

// fetch reads name from the provider. Empty values count as not found and
// transport failures are logged; callers treat every error as "no value".
func (v *secretsVault) fetch(ctx context.Context, name string) (string, error) {
	value, err := v.provider.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, secretsDomain.ErrSecretNotFound) {
			v.logger.Warn("secret provider read failed",
				slog.String("key", name),
				slog.String("provider", v.provider.Name()),
				slog.Any("error", err),
			)
		}
		return "", err
	}
	if value == "" {
		return "", secretsDomain.ErrSecretNotFound
	}
	return value, nil
}

func (v *secretsVault) store(name, value string) {
	v.mu.Lock()
	v.cache[name] = cacheEntry{value: value, expiresAt: v.clock.Now().Add(v.ttl)}
	v.mu.Unlock()
}

func (v *secretsVault) recordAudit(name string, action secretsDomain.AuditAction) {
	v.auditMu.Lock()
	defer v.auditMu.Unlock()
	if len(v.audit) == MaxAuditRecords {
		copy(v.audit, v.audit[1:])
		v.audit = v.audit[:MaxAuditRecords-1]
	}
	v.audit = append(v.audit, secretsDomain.AuditRecord{
		Key:       name,
		Action:    action,
		Timestamp: v.clock.Now().UTC(),
		Provider:  v.provider.Name(),
	})
}
