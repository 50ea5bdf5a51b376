package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode selects how a mapped row is reconciled against existing records.
type Mode string

const (
	ModeInsert    Mode = "insert"
	ModeInsertNew Mode = "insert-new"
	ModeUpdate    Mode = "update"
	ModeUpsert    Mode = "upsert"
)

// Modes lists the supported modes in the order they are documented.
var Modes = []Mode{ModeInsert, ModeInsertNew, ModeUpdate, ModeUpsert}

// ParseMode lowercases and trims s and checks it against the supported modes.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w '%s'", ErrInvalidMode, m)
}

// Row maps a field name to its trimmed string value. It is used both for
// mapped rows and for key projections.
type Row map[string]string

// Clone returns a copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Target is the storage contract the import engine writes through.
// Implementations exist for relational tables and for declared entity models.
type Target interface {
	// Name returns the table or model name as given by the caller.
	Name() string

	// TargetExists reports whether the underlying table is present.
	TargetExists(ctx context.Context) (bool, error)

	// HasField reports whether field may be written or matched on.
	HasField(ctx context.Context, field string) (bool, error)

	// FindByKey returns the records matching key. Table targets return at
	// most one record (an existence check).
	FindByKey(ctx context.Context, key Row) ([]Row, error)

	Insert(ctx context.Context, row Row) error

	// Update writes row onto every record matching key and returns the
	// number of records affected.
	Update(ctx context.Context, key, row Row) (int64, error)

	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// FindOrCreator is implemented by targets that can create a record only when
// none matches key, as one step.
type FindOrCreator interface {
	FirstOrCreate(ctx context.Context, key, row Row) (created bool, err error)
}

// Observer receives progress notifications from an Importer. Calls are made
// synchronously from the import loop, in order.
type Observer interface {
	// OnStart is called before the first row is read. total is the take
	// bound when one is set, the file size in bytes otherwise.
	OnStart(total int64)

	// OnRowProcessed is called after each reconciled row with the rows
	// processed so far (take set) or the bytes read so far.
	OnRowProcessed(progress int64)

	// OnFinish is called once the stream is exhausted and committed.
	OnFinish()
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnStart(int64)        {}
func (NopObserver) OnRowProcessed(int64) {}
func (NopObserver) OnFinish()            {}

// State is the lifecycle phase of an Importer.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is what reconciling one row did (or would do, in a dry run).
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// RunStatistics holds the counters of one import run.
type RunStatistics struct {
	RunID string

	Imported  int // Rows mapped, validated and reconciled
	Inserted  int
	Updated   int
	Unchanged int
	Skipped   int // Invalid rows skipped when SkipInvalid is set

	Line int // 1-based file line of the last attempted record, 0 if none

	StartedAt time.Time
	Elapsed   time.Duration
	DryRun    bool
}

func (s *RunStatistics) record(o Outcome) {
	s.Imported++
	switch o {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeUpdated:
		s.Updated++
	default:
		s.Unchanged++
	}
}
