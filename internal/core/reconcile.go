package core

import (
	"context"
)

// Reconciler applies one mapped row to a Target under the configured mode.
//
//	insert      write a new record, no existence check
//	update      write onto every record matching the key; no match is a no-op
//	insert-new  create the record only when nothing matches the key
//	upsert      look up the key, then insert or update
//
// In a dry run the key lookups still happen but nothing is written; the
// returned Outcome is what would have been done.
type Reconciler struct {
	target Target
	mode   Mode
	dryRun bool
}

// NewReconciler creates a Reconciler.
func NewReconciler(target Target, mode Mode, dryRun bool) *Reconciler {
	return &Reconciler{target: target, mode: mode, dryRun: dryRun}
}

// Apply reconciles row, identified by key.
func (r *Reconciler) Apply(ctx context.Context, row, key Row) (Outcome, error) {
	switch r.mode {
	case ModeInsert:
		return r.insert(ctx, row)
	case ModeUpdate:
		return r.update(ctx, key, row)
	case ModeInsertNew:
		return r.insertNew(ctx, key, row)
	default:
		return r.upsert(ctx, key, row)
	}
}

func (r *Reconciler) insert(ctx context.Context, row Row) (Outcome, error) {
	if r.dryRun {
		return OutcomeInserted, nil
	}
	if err := r.target.Insert(ctx, row); err != nil {
		return 0, r.wrap("insert into", err)
	}
	return OutcomeInserted, nil
}

func (r *Reconciler) update(ctx context.Context, key, row Row) (Outcome, error) {
	if r.dryRun {
		found, err := r.target.FindByKey(ctx, key)
		if err != nil {
			return 0, r.wrap("find in", err)
		}
		if len(found) == 0 {
			return OutcomeUnchanged, nil
		}
		return OutcomeUpdated, nil
	}
	n, err := r.target.Update(ctx, key, row)
	if err != nil {
		return 0, r.wrap("update", err)
	}
	if n == 0 {
		return OutcomeUnchanged, nil
	}
	return OutcomeUpdated, nil
}

func (r *Reconciler) upsert(ctx context.Context, key, row Row) (Outcome, error) {
	found, err := r.target.FindByKey(ctx, key)
	if err != nil {
		return 0, r.wrap("find in", err)
	}
	if len(found) == 0 {
		return r.insert(ctx, row)
	}
	if r.dryRun {
		return OutcomeUpdated, nil
	}
	return r.update(ctx, key, row)
}

// insertNew uses the target's find-or-create when it has one. Otherwise it
// looks up and inserts, which isn't atomic against concurrent writers.
func (r *Reconciler) insertNew(ctx context.Context, key, row Row) (Outcome, error) {
	if foc, ok := r.target.(FindOrCreator); ok && !r.dryRun {
		created, err := foc.FirstOrCreate(ctx, key, row)
		if err != nil {
			return 0, r.wrap("find or create in", err)
		}
		if created {
			return OutcomeInserted, nil
		}
		return OutcomeUnchanged, nil
	}

	found, err := r.target.FindByKey(ctx, key)
	if err != nil {
		return 0, r.wrap("find in", err)
	}
	if len(found) > 0 {
		return OutcomeUnchanged, nil
	}
	return r.insert(ctx, row)
}

func (r *Reconciler) wrap(op string, err error) error {
	return &StorageError{Op: op, Target: r.target.Name(), Err: err}
}
