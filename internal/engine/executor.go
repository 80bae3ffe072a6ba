package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/filename"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
)

// ErrTargetExists is returned when the chosen target appeared after the decision was made.
var ErrTargetExists = errors.New("target file already exists")

// errNameTaken is the reason recorded for collisions under the skip policy.
var errNameTaken = errors.New("proposed name is already taken")

// CollisionPolicy decides what happens when the proposed name is taken.
type CollisionPolicy string

// Collision policies.
const (
	CollisionSuffix CollisionPolicy = "suffix"
	CollisionSkip   CollisionPolicy = "skip"
)

// ParseCollisionPolicy accepts "suffix" or "skip".
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch policy := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); policy {
	case CollisionSuffix, CollisionSkip:
		return policy, nil
	case "":
		return CollisionSuffix, nil
	default:
		return "", fmt.Errorf("%w: collision policy %q", common.ErrInvalidConfig, s)
	}
}

// Options configures a batch run.
type Options struct {
	// Progress is called after each document is settled.
	Progress func(done, total int)
	Retry    service.RetryOptions
	// DestDir moves files into this directory. Empty renames in place.
	DestDir     string
	OnCollision CollisionPolicy
	Workers     int
	DryRun      bool
}

// Result is the settled outcome for one input file.
type Result struct {
	Err      error
	Decision *Decision
	Path     string
	Outcome  model.Outcome
}

// Summary contains statistics about a batch run.
type Summary struct {
	Results  []Result
	Total    int
	Applied  int
	DryRun   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

func (s *Summary) add(result Result) {
	s.Results = append(s.Results, result)
	switch result.Outcome {
	case model.OutcomeApplied:
		s.Applied++
	case model.OutcomeDryRun:
		s.DryRun++
	case model.OutcomeFailed:
		s.Failed++
	case model.OutcomeSkippedCollision:
		s.Skipped++
	}
}

// Executor classifies a batch of files concurrently, then names and renames
// them one at a time in input order.
type Executor struct {
	engine     *Engine
	classifier service.Classifier
}

// NewExecutor creates an executor.
func NewExecutor(engine *Engine, classifier service.Classifier) *Executor {
	return &Executor{
		engine:     engine,
		classifier: classifier,
	}
}

type classified struct {
	result *service.Classification
	err    error
}

// Run processes paths. Per-document failures are recorded and skipped; a
// corrupt store, a ledger write failure or cancellation stops the run and
// returns the partial summary with the error.
func (x *Executor) Run(ctx context.Context, paths []string, opts Options) (*Summary, error) {
	startTime := time.Now()
	summary := &Summary{Total: len(paths)}

	if opts.OnCollision == "" {
		opts.OnCollision = CollisionSuffix
	}

	classifications := x.classifyAll(ctx, paths, opts)

	reserved := filename.NewNameSet()
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(startTime)
			return summary, err
		}

		result, err := x.settle(ctx, path, classifications[i], reserved, opts)
		if err != nil {
			summary.Duration = time.Since(startTime)
			return summary, err
		}
		summary.add(result)

		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
	}

	summary.Duration = time.Since(startTime)
	common.LogInfo("Batch complete", common.Fields{
		"total":    summary.Total,
		"applied":  summary.Applied,
		"dry_run":  summary.DryRun,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
		"duration": summary.Duration,
	})
	return summary, nil
}

// classifyAll runs the classifier with bounded parallelism. Failures stay
// attached to their slot.
func (x *Executor) classifyAll(ctx context.Context, paths []string, opts Options) []classified {
	results := make([]classified, len(paths))

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			var classification *service.Classification
			err := common.WithRetry(ctx, func() error {
				var classifyErr error
				classification, classifyErr = x.classifier.Classify(ctx, path)
				return classifyErr
			}, opts.Retry)
			results[i] = classified{result: classification, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// settle decides, applies and records one document.
func (x *Executor) settle(ctx context.Context, path string, c classified, reserved filename.NameSet, opts Options) (Result, error) {
	req := Request{
		Path:     path,
		Dir:      opts.DestDir,
		Reserved: reserved,
		DryRun:   opts.DryRun,
	}

	if c.err == nil && c.result == nil {
		c.err = fmt.Errorf("%w: no result for %s", common.ErrClassificationFailed, path)
	}
	if c.err != nil {
		return x.fail(ctx, req, nil, c.err)
	}
	req.DocumentType = c.result.DocumentType
	req.Fields = c.result.Fields

	decision, err := x.engine.Decide(ctx, req)
	if err != nil {
		if errors.Is(err, common.ErrStoreCorrupted) || ctx.Err() != nil {
			return Result{}, err
		}
		return x.fail(ctx, req, nil, err)
	}

	if decision.Name.Suffixed && opts.OnCollision == CollisionSkip {
		if err := x.engine.Record(ctx, req, decision, model.OutcomeSkippedCollision, errNameTaken.Error()); err != nil {
			return Result{}, err
		}
		return Result{Path: path, Decision: decision, Outcome: model.OutcomeSkippedCollision, Err: errNameTaken}, nil
	}

	if opts.DryRun {
		if err := x.engine.Record(ctx, req, decision, model.OutcomeDryRun, ""); err != nil {
			return Result{}, err
		}
		reserved.Add(decision.Name.Name)
		return Result{Path: path, Decision: decision, Outcome: model.OutcomeDryRun}, nil
	}

	if err := apply(decision); err != nil {
		return x.fail(ctx, req, decision, err)
	}
	if err := x.engine.Record(ctx, req, decision, model.OutcomeApplied, ""); err != nil {
		return Result{}, err
	}
	reserved.Add(decision.Name.Name)

	common.LogDebug("Renamed document", common.Fields{
		"file":       path,
		"target":     decision.Target,
		"pattern_id": decision.Selection.Pattern.ID,
	})
	return Result{Path: path, Decision: decision, Outcome: model.OutcomeApplied}, nil
}

func (x *Executor) fail(ctx context.Context, req Request, decision *Decision, cause error) (Result, error) {
	fields := common.Fields{"file": req.Path}
	if decision != nil {
		fields["pattern_id"] = decision.Selection.Pattern.ID
	}
	common.LogError(cause, "Failed to rename document", fields)

	if !req.DocumentType.IsValid() {
		req.DocumentType = ""
	}

	if err := x.engine.Record(ctx, req, decision, model.OutcomeFailed, cause.Error()); err != nil {
		return Result{}, err
	}
	return Result{Path: req.Path, Decision: decision, Outcome: model.OutcomeFailed, Err: cause}, nil
}

// apply moves the file to its target, refusing to overwrite anything.
func apply(decision *Decision) error {
	if decision.Unchanged() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(decision.Target), 0750); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	// A case-only rename points at the source on case-insensitive filesystems
	if _, err := os.Lstat(decision.Target); err == nil && !strings.EqualFold(decision.Source, decision.Target) {
		return fmt.Errorf("%w: %s", ErrTargetExists, decision.Target)
	}

	if err := os.Rename(decision.Source, decision.Target); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}
