package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// memTarget is an in-memory Target that records every call.
type memTarget struct {
	name    string
	missing bool
	fields  map[string]bool
	records []Row
	calls   []string

	failInsert error
	txOpen     bool
	begun      int
	committed  int
	rolledBack int
}

func newMemTarget(name string, fields ...string) *memTarget {
	m := &memTarget{name: name, fields: make(map[string]bool)}
	for _, f := range fields {
		m.fields[f] = true
	}
	return m
}

func (m *memTarget) Name() string { return m.name }

func (m *memTarget) TargetExists(context.Context) (bool, error) {
	return !m.missing, nil
}

func (m *memTarget) HasField(_ context.Context, field string) (bool, error) {
	return m.fields[field], nil
}

func (m *memTarget) FindByKey(_ context.Context, key Row) ([]Row, error) {
	m.calls = append(m.calls, "find "+formatRow(key))
	var out []Row
	for _, r := range m.records {
		if matches(r, key) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *memTarget) Insert(_ context.Context, row Row) error {
	m.calls = append(m.calls, "insert "+formatRow(row))
	if m.failInsert != nil {
		return m.failInsert
	}
	m.records = append(m.records, row.Clone())
	return nil
}

func (m *memTarget) Update(_ context.Context, key, row Row) (int64, error) {
	m.calls = append(m.calls, "update "+formatRow(key)+" "+formatRow(row))
	var n int64
	for _, r := range m.records {
		if !matches(r, key) {
			continue
		}
		for k, v := range row {
			r[k] = v
		}
		n++
	}
	return n, nil
}

func (m *memTarget) Begin(context.Context) error {
	if m.txOpen {
		return errors.New("transaction already open")
	}
	m.txOpen = true
	m.begun++
	return nil
}

func (m *memTarget) Commit(context.Context) error {
	m.txOpen = false
	m.committed++
	return nil
}

func (m *memTarget) Rollback(context.Context) error {
	m.txOpen = false
	m.rolledBack++
	return nil
}

// writes returns the mutating calls only.
func (m *memTarget) writes() []string {
	var out []string
	for _, c := range m.calls {
		if !strings.HasPrefix(c, "find ") {
			out = append(out, c)
		}
	}
	return out
}

// focTarget adds FindOrCreator to memTarget.
type focTarget struct {
	*memTarget
}

func (f focTarget) FirstOrCreate(_ context.Context, key, row Row) (bool, error) {
	f.calls = append(f.calls, "first-or-create "+formatRow(key))
	for _, r := range f.records {
		if matches(r, key) {
			return false, nil
		}
	}
	merged := key.Clone()
	for k, v := range row {
		merged[k] = v
	}
	f.records = append(f.records, merged)
	return true, nil
}

func matches(r, key Row) bool {
	for k, v := range key {
		if r[k] != v {
			return false
		}
	}
	return true
}

// formatRow renders a row with sorted keys: {a=1 b=2}.
func formatRow(r Row) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, r[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	total    int64
	progress []int64
	finished int
}

func (o *recordingObserver) OnStart(total int64)           { o.total = total }
func (o *recordingObserver) OnRowProcessed(progress int64) { o.progress = append(o.progress, progress) }
func (o *recordingObserver) OnFinish()                     { o.finished++ }
