// Package core provides the import engine for delimited files.
//
// This package holds all domain logic independent of the command line and of
// any concrete database. Storage is reached through the [Target] interface,
// implemented by package storage for tables and entity models.
//
// # Architecture
//
// Data flows strictly forward, one row at a time:
//
//	file -> RowReader -> MapRow -> RowValidator -> Reconciler -> Target
//
//   - Field and key specs: [ParseFieldSpec] and [ParseKeySpec] turn
//     "name[:position]" definitions into name to column mappings.
//   - Streaming: [OpenRows] reads the file lazily through the counting,
//     charset, BOM and UTF-8 readers, honouring ignore and take bounds.
//   - Validation: [NewRuleSet] compiles "required|integer" style rules;
//     [RowValidator] reports every failing field of a row at once.
//   - Reconciliation: [Reconciler] dispatches a row on the import [Mode].
//   - Orchestration: [Importer] owns the run lifecycle and the transaction.
//
// # Configuration
//
// A [Builder] validates every setting when it is set. [Builder.Build]
// returns an immutable [Configuration] and freezes the builder:
//
//	b := core.NewBuilder()
//	if err := b.SetFile("users.csv"); err != nil { ... }
//	if err := b.SetFields([]string{"email", "name:2"}); err != nil { ... }
//	if err := b.SetKey([]string{"email"}); err != nil { ... }
//	cfg, err := b.Build()
//
//	stats, err := core.NewImporter(cfg, target).Run(ctx)
//
// # Lifecycle
//
// An Importer moves through Idle, Configuring, Running and then Completed
// or Aborted. Configuring checks the target and every field against the
// storage schema. Any row failure aborts the run at that row and rolls back
// an open transaction. [RunStatistics] is returned in both outcomes.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CFG001-CFG009: Configuration errors (mode, delimiter, specs, rules)
//   - FILE001-FILE002: File errors (unreadable, empty)
//   - ROW001, VAL001: Row errors (position out of range, validation)
//   - DB001-DB008: Database errors (duplicates, constraints, connections)
package core
