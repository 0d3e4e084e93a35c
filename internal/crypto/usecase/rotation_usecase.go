package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/juju/clock"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/trustchecker/atrest/internal/crypto/domain"
	cryptoService "github.com/trustchecker/atrest/internal/crypto/service"
	"github.com/trustchecker/atrest/internal/database"
	apperrors "github.com/trustchecker/atrest/internal/errors"
	piiDomain "github.com/trustchecker/atrest/internal/pii/domain"
	customValidation "github.com/trustchecker/atrest/internal/validation"
)

// DefaultRotationBatchSize is the number of records loaded and committed per batch.
const DefaultRotationBatchSize = 500

// RotationOptions tunes the rotation sweep.
type RotationOptions struct {
	// BatchSize defaults to DefaultRotationBatchSize.
	BatchSize int
	// RecordsPerSecond paces the sweep. Zero disables pacing.
	RecordsPerSecond int
	// Clock stamps run records. Defaults to the wall clock.
	Clock clock.Clock
	// OnCommitted hooks run, in order, after the new key is active.
	OnCommitted []RotationHook
	// DurableKeyStore reports whether OnCommitted stores the new key outside this
	// process. Without it RotateActive refuses to generate a key.
	DurableKeyStore bool
}

// rotationUseCase implements RotationUseCase.
type rotationUseCase struct {
	txManager database.TxManager
	records   RecordRepository
	runRepo   RotationRunRepository
	keyring   *cryptoService.Keyring
	deriver   *cryptoService.KeyDeriver
	fields    piiDomain.PiiFieldMap
	opts      RotationOptions
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewRotationUseCase creates a RotationUseCase.
func NewRotationUseCase(
	txManager database.TxManager,
	records RecordRepository,
	runRepo RotationRunRepository,
	keyring *cryptoService.Keyring,
	deriver *cryptoService.KeyDeriver,
	fields piiDomain.PiiFieldMap,
	opts RotationOptions,
	logger *slog.Logger,
) RotationUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultRotationBatchSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}

	var limiter *rate.Limiter
	if opts.RecordsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RecordsPerSecond), opts.RecordsPerSecond)
	}

	return &rotationUseCase{
		txManager: txManager,
		records:   records,
		runRepo:   runRepo,
		keyring:   keyring,
		deriver:   deriver,
		fields:    fields,
		opts:      opts,
		limiter:   limiter,
		logger:    logger,
	}
}

// Rotate re-encrypts every mapped entity and then activates newKey.
func (r *rotationUseCase) Rotate(
	ctx context.Context,
	oldKey, newKey []byte,
) (*cryptoDomain.RotationSummary, error) {
	if len(oldKey) != cryptoDomain.KeySize || len(newKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	newMaster, err := cryptoDomain.NewMasterKey(newKey)
	if err != nil {
		return nil, err
	}
	if newMaster.Equal(oldKey) {
		return nil, cryptoDomain.ErrRotationSameKey
	}

	if !r.keyring.BeginRotation() {
		return nil, cryptoDomain.ErrRotationInProgress
	}
	defer r.keyring.EndRotation()

	if active := r.keyring.Active(); active != nil && !active.Equal(oldKey) {
		return nil, cryptoDomain.ErrRotationKeyMismatch
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate rotation run id")
	}
	run := &cryptoDomain.RotationRun{
		ID:             runID,
		Status:         cryptoDomain.RotationSweeping,
		OldFingerprint: cryptoDomain.Fingerprint(oldKey),
		NewFingerprint: newMaster.Fingerprint(),
		StartedAt:      r.opts.Clock.Now().UTC(),
	}
	if err := r.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	summary := &cryptoDomain.RotationSummary{
		RunID:  run.ID,
		Status: cryptoDomain.RotationSweeping,
	}

	r.logger.Info("key rotation started",
		slog.String("run_id", run.ID.String()),
		slog.String("old_key_fingerprint", run.OldFingerprint),
		slog.String("new_key_fingerprint", run.NewFingerprint),
		slog.Int("batch_size", r.opts.BatchSize),
	)

	sweep := newSweepKeys(r.deriver, oldKey, newMaster.Bytes())
	defer sweep.close()

	for _, entity := range r.fields.Entities() {
		if err := r.sweepEntity(ctx, entity, sweep, summary); err != nil {
			return r.abort(run, summary, err)
		}
	}

	// The sweep is complete: publish the new key and drop every tenant key
	// derived from the old one.
	r.keyring.Activate(newMaster)
	r.deriver.Purge()
	summary.Status = cryptoDomain.RotationCompleted

	r.finishRun(run, summary, "")
	r.logger.Info("key rotation completed",
		slog.String("run_id", run.ID.String()),
		slog.Int("reencrypted", summary.Reencrypted),
		slog.Int("errors", summary.Errors),
	)

	var hookErrs []error
	for _, hook := range r.opts.OnCommitted {
		if err := hook(ctx, summary, newMaster); err != nil {
			r.logger.Error("post-rotation hook failed",
				slog.String("run_id", run.ID.String()),
				slog.Any("error", err),
			)
			hookErrs = append(hookErrs, err)
		}
	}
	if len(hookErrs) > 0 {
		return summary, apperrors.Wrap(errors.Join(hookErrs...), "post-rotation hook failed")
	}
	return summary, nil
}

// RotateActive rotates the active master key to newKeyHex, generating one when
// newKeyHex is empty.
func (r *rotationUseCase) RotateActive(
	ctx context.Context,
	newKeyHex string,
) (*cryptoDomain.MasterKeyRotation, error) {
	active := r.keyring.Active()
	if active == nil {
		return nil, cryptoDomain.ErrEncryptionInactive
	}

	generated := false
	if newKeyHex == "" {
		if !r.opts.DurableKeyStore {
			return nil, cryptoDomain.ErrGeneratedKeyNotDurable
		}
		key, err := cryptoDomain.GenerateMasterKey()
		if err != nil {
			return nil, err
		}
		newKeyHex, generated = key, true
	} else if err := validation.Validate(newKeyHex, customValidation.HexKey256); err != nil {
		return nil, customValidation.WrapValidationError(fmt.Errorf("new key: %w", err))
	}

	newKey, err := cryptoDomain.ParseMasterKeyHex(newKeyHex)
	if err != nil {
		return nil, err
	}

	oldKey := cryptoDomain.CloneKey(active.Bytes())
	defer cryptoDomain.Zero(oldKey)

	summary, err := r.Rotate(ctx, oldKey, newKey.Bytes())
	if summary == nil {
		return nil, err
	}
	return &cryptoDomain.MasterKeyRotation{Summary: summary, NewKey: newKey, Generated: generated}, err
}

// sweepEntity walks entity with keyset pagination, rewriting one batch per transaction.
func (r *rotationUseCase) sweepEntity(
	ctx context.Context,
	entity piiDomain.EntitySpec,
	sweep *sweepKeys,
	summary *cryptoDomain.RotationSummary,
) error {
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := r.records.ListBatch(ctx, entity, afterID, r.opts.BatchSize)
		if err != nil {
			return apperrors.Wrapf(err, "failed to load %s batch", entity.Model)
		}
		if len(batch) == 0 {
			return nil
		}

		var reencrypted, failed int
		err = r.txManager.WithTx(ctx, func(txCtx context.Context) error {
			reencrypted, failed = 0, 0
			for _, record := range batch {
				if r.limiter != nil {
					if err := r.limiter.Wait(txCtx); err != nil {
						return err
					}
				}

				updates, errs := r.reencryptRecord(entity, record, sweep)
				failed += errs
				if len(updates) == 0 {
					continue
				}
				err := r.records.UpdateFields(txCtx, entity, record.ID, updates)
				if errors.Is(err, apperrors.ErrNotFound) {
					// Deleted since the batch was read; nothing left to rotate.
					r.logger.Warn("record vanished during rotation",
						slog.String("model", entity.Model),
						slog.String("record_id", record.ID),
					)
					continue
				}
				if err != nil {
					return apperrors.Wrapf(err, "failed to update %s %s", entity.Model, record.ID)
				}
				reencrypted++
			}
			return nil
		})
		if err != nil {
			return err
		}

		summary.Reencrypted += reencrypted
		summary.Errors += failed

		if len(batch) < r.opts.BatchSize {
			return nil
		}
		afterID = batch[len(batch)-1].ID
	}
}

// reencryptRecord returns the fields that now hold new-key envelopes and the
// number of fields that could not be rotated.
func (r *rotationUseCase) reencryptRecord(
	entity piiDomain.EntitySpec,
	record *piiDomain.Record,
	sweep *sweepKeys,
) (map[string]string, int) {
	tenantID := record.TenantID
	if tenantID == "" {
		tenantID = cryptoDomain.DefaultTenant
	}

	var updates map[string]string
	failed := 0
	for _, field := range entity.Fields {
		value, ok := record.Fields[field]
		if !ok || !cryptoDomain.IsEnvelope(value) {
			continue
		}

		envelope, err := sweep.reencrypt(tenantID, value)
		if errors.Is(err, errAlreadyRotated) {
			continue
		}
		if err != nil {
			failed++
			r.logger.Error("field rotation failed",
				slog.String("model", entity.Model),
				slog.String("field", field),
				slog.String("record_id", record.ID),
				slog.String("tenant_id", tenantID),
				slog.Any("error", err),
			)
			continue
		}

		if updates == nil {
			updates = make(map[string]string, len(entity.Fields))
		}
		updates[field] = envelope
	}
	return updates, failed
}

func (r *rotationUseCase) abort(
	run *cryptoDomain.RotationRun,
	summary *cryptoDomain.RotationSummary,
	cause error,
) (*cryptoDomain.RotationSummary, error) {
	summary.Status = cryptoDomain.RotationAborted
	r.finishRun(run, summary, cause.Error())

	r.logger.Error("key rotation aborted, old key remains active",
		slog.String("run_id", run.ID.String()),
		slog.Int("reencrypted", summary.Reencrypted),
		slog.Int("errors", summary.Errors),
		slog.Any("error", cause),
	)
	return summary, fmt.Errorf("%w: %w", cryptoDomain.ErrRotationAborted, cause)
}

// finishRun stores the outcome of run. It uses a fresh context so an aborted
// (cancelled) sweep is still recorded.
func (r *rotationUseCase) finishRun(run *cryptoDomain.RotationRun, summary *cryptoDomain.RotationSummary, errMsg string) {
	finishedAt := r.opts.Clock.Now().UTC()
	run.Status = summary.Status
	run.Reencrypted = summary.Reencrypted
	run.Errors = summary.Errors
	run.ErrorMessage = errMsg
	run.FinishedAt = &finishedAt

	if err := r.runRepo.Update(context.Background(), run); err != nil {
		r.logger.Error("failed to record rotation run outcome",
			slog.String("run_id", run.ID.String()),
			slog.Any("error", err),
		)
	}
}
