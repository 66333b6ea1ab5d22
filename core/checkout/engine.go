// Copyright 2024 The Bit Authors
// This file is part of bit.

package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/bitmap"
	"github.com/alekstar79/bit/core/importer"
	"github.com/alekstar79/bit/core/merge"
	"github.com/alekstar79/bit/core/record"
)

// WriteBack is the external "write many components" capability (§6),
// delegated to by step 9. It is a contract, not something this package
// implements — the CLI/host wires a concrete writer.
type WriteBack interface {
	WriteMany(ctx context.Context, components []AppliedComponent, skipDependencyInstallation, resetConfig, verbose bool) (installationErr, compilationErr error)
	RemoveLocally(ctx context.Context, ids []common.ComponentID, force bool) error
}

// AppliedComponent is the file set one component's apply step produced,
// handed to WriteBack.WriteMany (§4.6 step 9).
type AppliedComponent struct {
	ID       common.ComponentID
	Files    map[string][]byte
	Conflict bool
}

// mergedComponent is one needs-merge component's resolved three-way result,
// keyed by real file path so each file's decision (kept, adopted, merged,
// conflicted) survives into the write-back step (§4.4's per-file table).
type mergedComponent struct {
	st       ComponentStatus
	files    map[string][]byte
	conflict bool
}

// FileLoader resolves the raw per-path file contents a three-way merge
// needs. A concrete Engine is built with a ModelLookup that also implements
// this, backed by the same object store the rest of the pipeline reads
// from. An absent head (ref == "") resolves to an empty map.
type FileLoader interface {
	LoadFiles(baseHead, currentHead, targetHead common.Ref) (base, current, target map[string][]byte, err error)
}

// mergeTrees runs MergeFile over the union of paths present in base,
// current and target, implementing §4.4's per-file decision table instead
// of treating a component's working set as a single opaque blob.
func mergeTrees(base, current, target map[string][]byte, strategy merge.Strategy) (files map[string][]byte, conflict bool) {
	paths := map[string]struct{}{}
	for p := range base {
		paths[p] = struct{}{}
	}
	for p := range current {
		paths[p] = struct{}{}
	}
	for p := range target {
		paths[p] = struct{}{}
	}

	files = make(map[string][]byte, len(paths))
	for p := range paths {
		res := merge.MergeFile(base[p], current[p], target[p], strategy)
		files[p] = res.Content
		if res.Conflict {
			conflict = true
		}
	}
	return files, conflict
}

// Engine runs the §4.6 pipeline.
type Engine struct {
	lookup ModelLookup
	bm     *bitmap.Bitmap
	imp    *importer.Importer
	writer WriteBack
	log    *zap.Logger
}

// NewEngine wires the engine's collaborators.
func NewEngine(lookup ModelLookup, bm *bitmap.Bitmap, imp *importer.Importer, writer WriteBack, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{lookup: lookup, bm: bm, imp: imp, writer: writer, log: log}
}

// Run executes the full pipeline for one invocation. activeLane is nil when
// no lane is active.
func (e *Engine) Run(ctx context.Context, p Props, activeLane *record.Lane) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	unlock, err := e.bm.Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	// step 2: resolve ids
	ids := p.IDs
	if activeLane != nil {
		ids = intersectWithLane(ids, p.All, activeLane)
	} else if p.All {
		for _, en := range e.bm.All() {
			ids = append(ids, en.ID.WithoutVersion())
		}
	}

	// step 3: sync new components (head only)
	if p.Target == TargetHead && e.imp != nil {
		var heads []common.Ref
		for _, id := range ids {
			if mc, ok := e.lookup.Component(id); ok && mc.Head != "" {
				heads = append(heads, mc.Head)
			}
		}
		if _, errs := e.imp.SyncNewComponents(ctx, heads); len(errs) > 0 {
			for _, err := range errs {
				e.log.Warn("sync new components: import failed, may be genuinely new", zap.Error(err))
			}
		}
	}

	// step 4: classify
	statuses := make([]ComponentStatus, 0, len(ids))
	for _, id := range ids {
		statuses = append(statuses, Classify(p, id, e.lookup))
	}

	rep := &Report{Failed: map[string]FailureReason{}}

	var needMerge, ready, toRemove []ComponentStatus
	for _, st := range statuses {
		switch st.Outcome {
		case OutcomeFailure:
			rep.Failed[st.ID.Key()] = st.Reason
		case OutcomeShouldBeRemoved:
			toRemove = append(toRemove, st)
		case OutcomeReadyNoMerge:
			ready = append(ready, st)
		case OutcomeReadyNeedsMerge:
			needMerge = append(needMerge, st)
		}
	}

	// step 5: import missing targets, in bulk
	if e.imp != nil {
		var targets []common.Ref
		for _, st := range append(append([]ComponentStatus{}, ready...), needMerge...) {
			targets = append(targets, st.TargetHead)
		}
		if _, errs := e.imp.ImportMissing(ctx, targets, nil); len(errs) > 0 {
			return nil, errors.Wrap(errs[0], "checkout: import missing targets")
		}
	}

	fl, hasFileLoader := e.lookup.(FileLoader)

	// step 6: three-way merge for the merge-needed subset, fanned out
	// within this step only (§5 scheduling model).
	mergeResults := make([]mergedComponent, len(needMerge))
	if len(needMerge) > 0 {
		g, _ := errgroup.WithContext(ctx)
		for i, st := range needMerge {
			i, st := i, st
			g.Go(func() error {
				if !hasFileLoader {
					return fmt.Errorf("checkout: %s: ModelLookup does not support file loading", st.ID)
				}
				base, cur, other, err := fl.LoadFiles(st.BaseHead, st.CurrentHead, st.TargetHead)
				if err != nil {
					return errors.Wrapf(err, "checkout: %s: load merge inputs", st.ID)
				}
				files, conflict := mergeTrees(base, cur, other, p.MergeStrategy)
				mergeResults[i] = mergedComponent{st: st, files: files, conflict: conflict}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if p.MergeStrategy == merge.StrategyPrompt && !p.PromptMergeOptions {
			for _, m := range mergeResults {
				if m.conflict {
					return nil, fmt.Errorf("checkout: %s: %s", m.st.ID, ReasonConflictNoStrategy)
				}
			}
		}
	}

	// step 7: apply, sequentially — never parallel, per §5.
	var toApply []AppliedComponent
	for _, st := range ready {
		var files map[string][]byte
		if hasFileLoader {
			_, _, target, err := fl.LoadFiles("", "", st.TargetHead)
			if err != nil {
				return rep, errors.Wrapf(err, "checkout: %s: load target files", st.ID)
			}
			files = target
		}
		toApply = append(toApply, AppliedComponent{ID: st.ID, Files: files})
		e.bm.Set(bitmap.Entry{ID: st.ID, Version: st.TargetHead})
		rep.Applied = append(rep.Applied, st.ID)
	}
	for _, m := range mergeResults {
		toApply = append(toApply, AppliedComponent{ID: m.st.ID, Files: m.files, Conflict: m.conflict})
		e.bm.Set(bitmap.Entry{ID: m.st.ID, Version: m.st.TargetHead})
		rep.Applied = append(rep.Applied, m.st.ID)
		if m.conflict {
			rep.LeftUnresolvedConflicts = append(rep.LeftUnresolvedConflicts, m.st.ID)
		}
	}

	// step 8: new-from-lane. Unless workspaceOnly, hydrate the candidates
	// from the model: import their lane-recorded head if missing, load
	// their files and fold them into the same apply batch write-back sees.
	if p.Target == TargetHead && activeLane != nil {
		newFromLane := newFromLaneIDs(ids, activeLane)
		rep.NewFromLane = newFromLane
		// §9(c): stays false when workspaceOnly=true, even if there were
		// new-from-lane candidates.
		if len(newFromLane) > 0 && !p.WorkspaceOnly {
			rep.NewFromLaneAdded = true

			heads := make(map[string]common.Ref, len(newFromLane))
			var importTargets []common.Ref
			for _, id := range newFromLane {
				lc, ok := activeLane.Has(id)
				if !ok || lc.Head == "" {
					continue
				}
				heads[id.WithoutVersion().Key()] = lc.Head
				importTargets = append(importTargets, lc.Head)
			}
			if e.imp != nil && len(importTargets) > 0 {
				if _, errs := e.imp.ImportMissing(ctx, importTargets, nil); len(errs) > 0 {
					return nil, errors.Wrap(errs[0], "checkout: import new-from-lane targets")
				}
			}
			if hasFileLoader {
				for _, id := range newFromLane {
					head, ok := heads[id.WithoutVersion().Key()]
					if !ok {
						continue
					}
					_, _, files, err := fl.LoadFiles("", "", head)
					if err != nil {
						return rep, errors.Wrapf(err, "checkout: %s: hydrate new-from-lane", id)
					}
					toApply = append(toApply, AppliedComponent{ID: id, Files: files})
					e.bm.Set(bitmap.Entry{ID: id, Version: head})
					rep.Applied = append(rep.Applied, id)
				}
			}
		}
	}

	// step 9: write back
	if e.writer != nil && !p.SkipFilesWrite && len(toApply) > 0 {
		skipInstall := p.SkipNpmInstall || hasManualUnresolved(mergeResults, p.MergeStrategy)
		instErr, compErr := e.writer.WriteMany(ctx, toApply, skipInstall, p.Reset, p.Verbose)
		rep.InstallationError = instErr
		rep.CompilationError = compErr
	}

	// step 10: delete
	if e.writer != nil && len(toRemove) > 0 {
		removeIDs := make([]common.ComponentID, 0, len(toRemove))
		for _, st := range toRemove {
			removeIDs = append(removeIDs, st.ID)
		}
		if err := e.writer.RemoveLocally(ctx, removeIDs, true); err != nil {
			return rep, errors.Wrap(err, "checkout: remove locally")
		}
		rep.Removed = append(rep.Removed, removeIDs...)
	}

	if err := e.bm.Save(); err != nil {
		return rep, errors.Wrap(err, "checkout: save bitmap")
	}

	sort.Slice(rep.Applied, func(i, j int) bool { return rep.Applied[i].Key() < rep.Applied[j].Key() })
	return rep, nil
}

func intersectWithLane(ids []common.ComponentID, all bool, l *record.Lane) []common.ComponentID {
	if all {
		return l.ComponentIDs()
	}
	var out []common.ComponentID
	for _, id := range ids {
		if _, ok := l.Has(id); ok {
			out = append(out, id)
		}
	}
	return out
}

func newFromLaneIDs(requested []common.ComponentID, l *record.Lane) []common.ComponentID {
	have := map[string]struct{}{}
	for _, id := range requested {
		have[id.WithoutVersion().Key()] = struct{}{}
	}
	var out []common.ComponentID
	for _, c := range l.Components {
		key := c.ID.WithoutVersion().Key()
		if _, ok := have[key]; !ok {
			out = append(out, c.ID)
		}
	}
	return out
}

func hasManualUnresolved(results []mergedComponent, strategy merge.Strategy) bool {
	if strategy != merge.StrategyManual {
		return false
	}
	for _, r := range results {
		if r.conflict {
			return true
		}
	}
	return false
}
