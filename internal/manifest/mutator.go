package manifest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"tagwarden/internal/logging"
	"tagwarden/internal/tagset"
)

// Target names one record to mutate.
type Target struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Mutation transforms a decoded record. It receives a private copy.
type Mutation func(tagset.Record) (tagset.Record, error)

// SetHide adds the hide marker and keeps every other key.
func SetHide() Mutation {
	return func(r tagset.Record) (tagset.Record, error) {
		return tagset.WithHide(r), nil
	}
}

// SetTags assigns category, merging with or replacing the existing tags.
func SetTags(category string, merge bool) Mutation {
	return func(r tagset.Record) (tagset.Record, error) {
		if category == "" {
			return nil, errors.New("empty category")
		}
		return tagset.WithCategory(r, category, merge), nil
	}
}

// SetSorting replaces the MusicApps.properties sorting list.
func SetSorting(categories []string) Mutation {
	return func(r tagset.Record) (tagset.Record, error) {
		return tagset.WithSorting(r, categories), nil
	}
}

// SetTagpool replaces the MusicApps.tagpool categories.
func SetTagpool(categories []string) Mutation {
	return func(r tagset.Record) (tagset.Record, error) {
		return tagset.WithTagpool(r, categories), nil
	}
}

// PartialError reports a batch that failed after changing some records.
type PartialError struct {
	Written int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("mutation aborted after %d record(s) written: %v", e.Written, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

type applyOptions struct {
	operation    string
	runID        string
	existingOnly bool
}

// ApplyOption configures a batch.
type ApplyOption func(*applyOptions)

// Operation labels the manifest, e.g. "hide" or "organize".
func Operation(name string) ApplyOption {
	return func(o *applyOptions) { o.operation = name }
}

// RunID sets the manifest run identifier instead of generating one.
func RunID(id string) ApplyOption {
	return func(o *applyOptions) { o.runID = id }
}

// ExistingOnly skips targets whose record does not exist. Skipped keys are
// listed in Manifest.Skipped.
func ExistingOnly() ApplyOption {
	return func(o *applyOptions) { o.existingOnly = true }
}

// Mutator applies manifested edits to one tagset store.
type Mutator struct {
	store  *tagset.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewMutator builds a mutator over store.
func NewMutator(store *tagset.Store, logger *slog.Logger) *Mutator {
	return &Mutator{
		store:  store,
		logger: logging.NewComponentLogger(logger, "manifest"),
		now:    time.Now,
	}
}

// Change pairs a target with the mutation to apply to it.
type Change struct {
	Target Target
	Mutate Mutation
}

// Apply mutates every target with the same mutation. See ApplyChanges.
func (m *Mutator) Apply(ctx context.Context, targets []Target, mutate Mutation, opts ...ApplyOption) (*Manifest, error) {
	changes := make([]Change, 0, len(targets))
	for _, target := range targets {
		changes = append(changes, Change{Target: target, Mutate: mutate})
	}
	return m.ApplyChanges(ctx, changes, opts...)
}

// ApplyChanges applies each change and returns the manifest of prior states.
// Duplicate keys are applied once, first change wins. Records that fail to
// decode are skipped with a warning; any read or write failure aborts the
// batch with a *PartialError and no manifest.
func (m *Mutator) ApplyChanges(ctx context.Context, changes []Change, opts ...ApplyOption) (*Manifest, error) {
	options := applyOptions{operation: "hide"}
	for _, opt := range opts {
		opt(&options)
	}
	if options.runID == "" {
		options.runID = uuid.NewString()
	}
	logger := logging.WithContext(logging.WithRunID(ctx, options.runID), m.logger)

	result := &Manifest{
		RunID:     options.runID,
		CreatedAt: m.now().UTC(),
		Operation: options.operation,
		TagsDir:   m.store.Dir(),
		Entries:   []Entry{},
	}
	seen := make(map[string]struct{}, len(changes))
	written := 0

	for _, change := range changes {
		target := change.Target
		if err := ctx.Err(); err != nil {
			return nil, &PartialError{Written: written, Err: err}
		}
		if _, ok := seen[target.Key]; ok {
			continue
		}
		seen[target.Key] = struct{}{}

		raw, exists, err := m.store.ReadRaw(target.Key)
		if err != nil {
			return nil, &PartialError{Written: written, Err: err}
		}
		if !exists && options.existingOnly {
			result.Skipped = append(result.Skipped, target.Key)
			continue
		}

		record := tagset.Record{}
		format := tagset.FormatXML
		if exists {
			record, format, err = tagset.Decode(raw)
			if err != nil {
				logging.WarnWithContext(logger, "skipping undecodable tagset", "tagset_decode_failed",
					logging.String(logging.FieldRecordKey, target.Key),
					logging.String("plugin", target.Name),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "inspect or delete the tagset file, then rerun"),
					logging.String(logging.FieldImpact, "record left untouched"),
				)
				result.Skipped = append(result.Skipped, target.Key)
				continue
			}
		}

		updated, err := change.Mutate(record.Clone())
		if err != nil {
			return nil, &PartialError{Written: written, Err: fmt.Errorf("mutate %s: %w", target.Key, err)}
		}
		if exists && reflect.DeepEqual(map[string]any(record), map[string]any(updated)) {
			result.Unchanged++
			logger.Debug("record already in desired state", logging.String(logging.FieldRecordKey, target.Key))
			continue
		}

		entry := Entry{
			RecordKey: target.Key,
			Path:      m.store.Path(target.Key),
			Existed:   exists,
		}
		if exists {
			entry.Prior = base64.StdEncoding.EncodeToString(raw)
		}
		result.Entries = append(result.Entries, entry)

		if err := m.store.Save(target.Key, updated, format); err != nil {
			return nil, &PartialError{Written: written, Err: err}
		}
		written++
		logger.Debug("record updated",
			logging.String(logging.FieldRecordKey, target.Key),
			logging.String("plugin", target.Name),
			logging.Bool("existed", exists),
		)
	}

	logger.Info("mutation batch applied",
		logging.String(logging.FieldOperation, options.operation),
		logging.Int("written", written),
		logging.Int("unchanged", result.Unchanged),
		logging.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// PlanItem describes what Apply would find for one target.
type PlanItem struct {
	Target Target `json:"target"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
	Hidden bool   `json:"hidden"`
}

// Plan inspects targets without writing anything.
func (m *Mutator) Plan(targets []Target) ([]PlanItem, error) {
	out := make([]PlanItem, 0, len(targets))
	for _, target := range targets {
		record, _, exists, err := m.store.Load(target.Key)
		item := PlanItem{Target: target, Path: m.store.Path(target.Key), Exists: exists}
		if err == nil {
			item.Hidden = record.Hidden()
		} else if !exists {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Clear removes the hide marker from every listed record that carries it.
// A nil keys slice clears every tagset in the store. Clear keeps no manifest
// and is idempotent.
func (m *Mutator) Clear(ctx context.Context, keys []string, dryRun bool) (int, error) {
	if keys == nil {
		all, err := m.store.Keys()
		if err != nil {
			return 0, err
		}
		keys = all
	}
	cleared := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}
		record, format, exists, err := m.store.Load(key)
		if err != nil {
			if exists {
				logging.WarnWithContext(m.logger, "skipping undecodable tagset", "tagset_decode_failed",
					logging.String(logging.FieldRecordKey, key),
					logging.Error(err),
					logging.String(logging.FieldImpact, "hide marker not cleared"),
				)
				continue
			}
			return cleared, err
		}
		if !exists || !record.Hidden() {
			continue
		}
		cleared++
		if dryRun {
			continue
		}
		if err := m.store.Save(key, tagset.WithoutHide(record), format); err != nil {
			return cleared - 1, err
		}
	}
	return cleared, nil
}
