package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/importio/internal/logging"
)

// Importer drives one import run: it streams the file, maps, validates and
// reconciles each row in order, and keeps RunStatistics.
//
// Lifecycle: Idle -> Configuring -> Running -> Completed | Aborted. Any
// row-level failure aborts the run at that row; an open transaction is
// rolled back before Run returns.
type Importer struct {
	cfg      Configuration
	target   Target
	observer Observer
	logger   *slog.Logger

	state State
	stats RunStatistics
	inTx  bool
}

// Option configures an Importer.
type Option func(*Importer)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(im *Importer) {
		if o != nil {
			im.observer = o
		}
	}
}

// WithLogger sets the logger. By default the logger is taken from the
// context passed to Run.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) {
		im.logger = l
	}
}

// NewImporter creates an Importer for cfg writing to target.
func NewImporter(cfg Configuration, target Target, opts ...Option) *Importer {
	im := &Importer{
		cfg:      cfg,
		target:   target,
		observer: NopObserver{},
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// State returns the current lifecycle state.
func (im *Importer) State() State {
	return im.state
}

// Statistics returns a snapshot of the run counters.
func (im *Importer) Statistics() RunStatistics {
	return im.stats
}

// Configuration returns the configuration the importer runs with.
func (im *Importer) Configuration() Configuration {
	return im.cfg
}

// Run performs the import. It may be called once.
func (im *Importer) Run(ctx context.Context) (RunStatistics, error) {
	if im.state != StateIdle {
		return im.stats, ErrAlreadyRun
	}

	im.stats = RunStatistics{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    im.cfg.DryRun,
	}
	ctx = logging.WithRunID(ctx, im.stats.RunID)
	if im.logger == nil {
		im.logger = logging.FromContext(ctx)
	} else {
		im.logger = im.logger.With("run_id", im.stats.RunID)
	}
	im.logger = im.logger.With("target", im.target.Name())

	im.state = StateConfiguring
	if err := im.checkTarget(ctx); err != nil {
		return im.abort(ctx, err)
	}

	readerOpts, err := im.cfg.ReaderOptions()
	if err != nil {
		return im.abort(ctx, err)
	}
	rows, err := OpenRows(im.cfg.File, readerOpts)
	if err != nil {
		return im.abort(ctx, err)
	}
	defer rows.Close()

	var validator *RowValidator
	if rules := im.cfg.ValidationRules(); len(rules) > 0 {
		validator = NewRowValidator(rules)
	}
	reconciler := NewReconciler(im.target, im.cfg.Mode, im.cfg.DryRun)

	im.state = StateRunning
	im.logger.Info("import started",
		"file", im.cfg.File,
		"mode", im.cfg.Mode,
		"fields", im.cfg.Fields.String(),
		"key", im.cfg.Key.String(),
		"dry_run", im.cfg.DryRun,
		"transaction", im.cfg.Transaction,
	)

	im.observer.OnStart(im.total(rows))

	if im.cfg.Transaction {
		if err := im.target.Begin(ctx); err != nil {
			return im.abort(ctx, &StorageError{Op: "begin transaction on", Target: im.target.Name(), Err: err})
		}
		im.inTx = true
	}

	for {
		values, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		im.stats.Line = rows.Line()
		if err != nil {
			return im.abort(ctx, fmt.Errorf("line %d: %w", rows.Line(), err))
		}

		if err := im.processRow(ctx, values, validator, reconciler); err != nil {
			return im.abort(ctx, err)
		}

		im.observer.OnRowProcessed(im.progress(rows))
	}

	if im.inTx {
		if err := im.target.Commit(ctx); err != nil {
			return im.abort(ctx, &StorageError{Op: "commit transaction on", Target: im.target.Name(), Err: err})
		}
		im.inTx = false
	}

	im.stats.Elapsed = time.Since(im.stats.StartedAt)
	im.state = StateCompleted
	im.observer.OnFinish()

	im.logger.Info("import completed",
		"imported", im.stats.Imported,
		"inserted", im.stats.Inserted,
		"updated", im.stats.Updated,
		"unchanged", im.stats.Unchanged,
		"skipped", im.stats.Skipped,
		"elapsed", im.stats.Elapsed,
	)

	return im.stats, nil
}

// processRow maps, validates and reconciles one record.
func (im *Importer) processRow(ctx context.Context, values []string, validator *RowValidator, reconciler *Reconciler) error {
	line := im.stats.Line

	row, err := MapRow(line, values, im.cfg.Fields)
	if err != nil {
		return err
	}
	key, err := MapRow(line, values, im.cfg.Key)
	if err != nil {
		return err
	}

	if validator != nil {
		if err := validator.Validate(line, row); err != nil {
			if !im.cfg.SkipInvalid {
				return err
			}
			im.stats.Skipped++
			im.logger.Warn("row skipped", "line", line, "error", err)
			return nil
		}
	}

	outcome, err := reconciler.Apply(ctx, row, key)
	if err != nil {
		var storageErr *StorageError
		if errors.As(err, &storageErr) {
			storageErr.Line = line
		}
		return err
	}

	im.stats.record(outcome)
	im.logger.Debug("row reconciled", "line", line, "outcome", outcome)
	return nil
}

// checkTarget verifies the target exists and knows every field and key.
func (im *Importer) checkTarget(ctx context.Context) error {
	name := im.target.Name()

	exists, err := im.target.TargetExists(ctx)
	if err != nil {
		return &StorageError{Op: "inspect", Target: name, Err: err}
	}
	if !exists {
		return fmt.Errorf("%w: '%s'", ErrTargetNotFound, name)
	}

	seen := make(map[string]bool)
	for _, spec := range []FieldSpec{im.cfg.Fields, im.cfg.Key} {
		for _, f := range spec {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true

			ok, err := im.target.HasField(ctx, f.Name)
			if err != nil {
				return &StorageError{Op: "inspect", Target: name, Err: err}
			}
			if !ok {
				return &SchemaError{Target: name, Field: f.Name}
			}
		}
	}
	return nil
}

// abort rolls back an open transaction and records the failure.
func (im *Importer) abort(ctx context.Context, cause error) (RunStatistics, error) {
	if im.inTx {
		if err := im.target.Rollback(context.WithoutCancel(ctx)); err != nil {
			im.logger.Error("rollback failed", "error", err)
		}
		im.inTx = false
	}

	im.stats.Elapsed = time.Since(im.stats.StartedAt)
	im.state = StateAborted

	im.logger.Error("import aborted",
		"line", im.stats.Line,
		"imported", im.stats.Imported,
		"error", cause,
	)

	return im.stats, cause
}

func (im *Importer) total(rows *RowReader) int64 {
	if im.cfg.Take > 0 {
		return int64(im.cfg.Take)
	}
	return rows.Size()
}

func (im *Importer) progress(rows *RowReader) int64 {
	if im.cfg.Take > 0 {
		return int64(im.stats.Imported + im.stats.Skipped)
	}
	return rows.BytesRead()
}
