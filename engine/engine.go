// Package engine orchestrates the analytics pipeline: it resolves the
// window, queries the Repository Access Layer, builds the Commit Dataset,
// fans the pure analyzers out over a bounded pool, runs the Risk Assessor,
// and hands the result to the Report Formatter. It owns the only
// process-wide mutable structure: the bounded result cache.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/gitbeacon/beacon/core/dataset"
	"github.com/gitbeacon/beacon/core/qualityanalyzer"
	"github.com/gitbeacon/beacon/core/riskassessor"
	"github.com/gitbeacon/beacon/core/teamanalyzer"
	"github.com/gitbeacon/beacon/core/timeanalyzer"
	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/internal/dateparse"
	"github.com/gitbeacon/beacon/report"
	"github.com/gitbeacon/beacon/render/section"
	"github.com/gitbeacon/beacon/schema"
)

// Engine is the analytics pipeline handle. It is not ambient state:
// callers construct one, optionally attach a durable CacheStore, and
// invoke Run/RunJSON/Compare/Timeseries/Check on it.
type Engine struct {
	client contract.GitClient
	cache  *lru

	mu    sync.Mutex
	store contract.CacheStore // optional, nil disables durable caching
}

// New constructs an Engine backed by client, with an in-process LRU result
// cache bounded to cacheSize entries (default 100).
func New(client contract.GitClient, cacheSize int) *Engine {
	return &Engine{client: client, cache: newLRU(cacheSize)}
}

// SetCacheStore attaches an optional durable CacheStore (see
// internal/iocache) used by RunJSON to persist rendered JSON across process
// invocations. The in-process LRU cache is always active regardless.
func (e *Engine) SetCacheStore(store contract.CacheStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
}

func (e *Engine) cacheStore() contract.CacheStore {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store
}

// Run executes the full pipeline for one repository/config and returns the
// composed Bundle that report.FormatRange/report.ToJSON consume.
func (e *Engine) Run(ctx context.Context, repoPath string, cfg contract.Config) (report.Bundle, error) {
	window, err := resolveWindow(cfg)
	if err != nil {
		return report.Bundle{}, err
	}
	return e.runWindow(ctx, repoPath, window, cfg)
}

// runWindow is Run with the window already resolved; Compare and Timeseries
// call it directly with windows they derived themselves.
func (e *Engine) runWindow(ctx context.Context, repoPath string, window schema.Window, cfg contract.Config) (report.Bundle, error) {
	key := cacheKey(repoPath, window, cfg)
	if !cfg.NoCache {
		if b, ok := e.cache.get(key); ok {
			return b, nil
		}
	}

	deadline := time.Now().Add(deadlineDuration(cfg))
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	raw, err := e.client.Query(runCtx, repoPath, window)
	if err != nil {
		return report.Bundle{}, err
	}
	maxCommits := cfg.MaxCommits
	if maxCommits <= 0 {
		maxCommits = 50000
	}
	if len(raw.Commits) > maxCommits {
		return report.Bundle{}, contract.WithKind(contract.KindWindowTooLarge,
			fmt.Errorf("window contains %d commits, exceeding engine.max_commits=%d", len(raw.Commits), maxCommits))
	}

	ds, err := dataset.Build(raw, window)
	if err != nil {
		return report.Bundle{}, err
	}

	bundle := e.analyze(runCtx, ds, cfg)

	if !cfg.NoCache {
		e.cache.put(key, bundle)
	}
	return bundle, nil
}

// RunJSON renders the range report as JSON, consulting the optional durable
// CacheStore first. A durable hit returns the persisted bytes directly
// without recomputing the pipeline; a miss runs the pipeline via Run and, on
// success, persists the rendered JSON for the next invocation.
func (e *Engine) RunJSON(ctx context.Context, repoPath string, cfg contract.Config) ([]byte, error) {
	window, err := resolveWindow(cfg)
	if err != nil {
		return nil, err
	}
	key := cacheKey(repoPath, window, cfg)

	store := e.cacheStore()
	if !cfg.NoCache && store != nil {
		if raw, ok, getErr := store.Get(ctx, key); getErr == nil && ok {
			return raw, nil
		}
	}

	bundle, err := e.Run(ctx, repoPath, cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.ToJSON(&buf, nil, &bundle); err != nil {
		return nil, err
	}

	if !cfg.NoCache && store != nil {
		if setErr := store.Set(ctx, key, buf.Bytes()); setErr != nil {
			contract.LogWarn("failed to persist cache entry: %v", setErr)
		}
	}
	return buf.Bytes(), nil
}

func resolveWindow(cfg contract.Config) (schema.Window, error) {
	since, until, err := dateparse.Resolve(cfg.Since, cfg.Until, time.Now())
	if err != nil {
		return schema.Window{}, err
	}
	return schema.Window{Since: since, Until: until}, nil
}

func deadlineDuration(cfg contract.Config) time.Duration {
	ms := cfg.DeadlineMS
	if ms <= 0 {
		ms = 30000
	}
	return time.Duration(ms) * time.Millisecond
}

// analyze fans TimeAnalyzer, TeamAnalyzer, and QualityAnalyzer out over a
// bounded pool (they are pure and share no mutable state), then runs
// RiskAssessor once every analyzer has returned or been cancelled.
//
// Cancellation is checked at the coarse boundary around each analyzer group
// rather than inside inner numeric loops: if the deadline has already
// passed before an analyzer's group starts, its outputs are substituted
// with a partial sentinel instead of running.
func (e *Engine) analyze(ctx context.Context, ds *schema.CommitDataset, cfg contract.Config) report.Bundle {
	var mu sync.Mutex
	var bundle schema.AnalyzerBundle

	p := pool.New().WithMaxGoroutines(3)

	p.Go(func() {
		if ctx.Err() != nil {
			contract.LogWarn("time analyzer cancelled: deadline exceeded before start")
			mu.Lock()
			bundle.Velocity = &schema.VelocityTrends{Partial: true}
			bundle.Heatmap = &schema.ActivityHeatmap{Partial: true}
			bundle.Bus = &schema.BusFactor{Partial: true}
			mu.Unlock()
			return
		}
		v := timeanalyzer.Velocity(ds, cfg)
		h := timeanalyzer.Heatmap(ds)
		b := timeanalyzer.BusFactor(ds, cutoffOrDefault(cfg.BusFactorCutoff))
		if ctx.Err() != nil {
			contract.LogWarn("time analyzer result discarded: deadline exceeded mid-run")
			v.Partial, h.Partial, b.Partial = true, true, true
		}
		mu.Lock()
		bundle.Velocity, bundle.Heatmap, bundle.Bus = &v, &h, &b
		mu.Unlock()
	})

	p.Go(func() {
		if ctx.Err() != nil {
			contract.LogWarn("team analyzer cancelled: deadline exceeded before start")
			mu.Lock()
			bundle.Ownership = &schema.OwnershipMap{Partial: true}
			bundle.CoAuthorship = &schema.CoAuthorshipMatrix{Partial: true}
			bundle.SilosPartial = true
			mu.Unlock()
			return
		}
		ownership := teamanalyzer.Ownership(ds, cfg)
		coauthor := teamanalyzer.CoAuthorship(ds, cfg)
		silos := teamanalyzer.Silos(ds, ownership, cfg)
		collab := teamanalyzer.CollaborationScore(ds, ownership, coauthor)
		if ctx.Err() != nil {
			contract.LogWarn("team analyzer result discarded: deadline exceeded mid-run")
			ownership.Partial, coauthor.Partial = true, true
		}
		mu.Lock()
		bundle.Ownership, bundle.CoAuthorship, bundle.Silos = &ownership, &coauthor, silos
		bundle.SilosPartial = ownership.Partial
		mu.Unlock()
		_ = collab // not used; the score is recomputed after p.Wait() below
	})

	var collabScore float64
	p.Go(func() {
		if ctx.Err() != nil {
			contract.LogWarn("quality analyzer cancelled: deadline exceeded before start")
			mu.Lock()
			bundle.Churn = &schema.ChurnMetrics{Partial: true}
			bundle.Refactors = &schema.RefactoringSignal{Partial: true}
			mu.Unlock()
			return
		}
		churn := qualityanalyzer.Churn(ds, cfg)
		trend := qualityanalyzer.ComplexityTrend(ds)
		large := qualityanalyzer.LargeChanges(ds, cfg)
		refactors := qualityanalyzer.Refactors(ds, cfg)
		if ctx.Err() != nil {
			contract.LogWarn("quality analyzer result discarded: deadline exceeded mid-run")
			churn.Partial, refactors.Partial = true, true
		}
		mu.Lock()
		bundle.Churn, bundle.ComplexityTrend = &churn, trend
		bundle.LargeChanges, bundle.Refactors = large, &refactors
		mu.Unlock()
	})

	p.Wait()

	// CollaborationScore depends on Ownership/CoAuthorship which were
	// computed inside the team goroutine above; recompute the score here
	// from the bundle without the lock, since p.Wait() already established
	// a happens-before edge for all writes above.
	if bundle.Ownership != nil && !bundle.Ownership.Partial && bundle.CoAuthorship != nil && !bundle.CoAuthorship.Partial {
		collabScore = teamanalyzer.CollaborationScore(ds, *bundle.Ownership, *bundle.CoAuthorship)
	}

	risk := riskassessor.Assess(bundle, cfg)

	return report.Bundle{
		Dataset: ds,
		Time: section.TimeInput{
			Velocity: derefVelocity(bundle.Velocity),
			Heatmap:  derefHeatmap(bundle.Heatmap),
			Bus:      derefBusFactor(bundle.Bus),
		},
		Team: section.TeamInput{
			Ownership:          derefOwnership(bundle.Ownership),
			CoAuthorship:       derefCoAuthorship(bundle.CoAuthorship),
			Silos:              bundle.Silos,
			CollaborationScore: collabScore,
		},
		Quality: section.QualityInput{
			Churn:           derefChurn(bundle.Churn),
			ComplexityTrend: bundle.ComplexityTrend,
			LargeChanges:    bundle.LargeChanges,
			Refactors:       derefRefactors(bundle.Refactors),
		},
		Risk: risk,
	}
}

func cutoffOrDefault(cutoff float64) float64 {
	if cutoff <= 0 {
		return 0.5
	}
	return cutoff
}

func derefVelocity(v *schema.VelocityTrends) schema.VelocityTrends {
	if v == nil {
		return schema.VelocityTrends{Partial: true}
	}
	return *v
}

func derefHeatmap(h *schema.ActivityHeatmap) schema.ActivityHeatmap {
	if h == nil {
		return schema.ActivityHeatmap{Partial: true}
	}
	return *h
}

func derefBusFactor(b *schema.BusFactor) schema.BusFactor {
	if b == nil {
		return schema.BusFactor{Partial: true}
	}
	return *b
}

func derefOwnership(o *schema.OwnershipMap) schema.OwnershipMap {
	if o == nil {
		return schema.OwnershipMap{Partial: true}
	}
	return *o
}

func derefCoAuthorship(c *schema.CoAuthorshipMatrix) schema.CoAuthorshipMatrix {
	if c == nil {
		return schema.CoAuthorshipMatrix{Partial: true}
	}
	return *c
}

func derefChurn(c *schema.ChurnMetrics) schema.ChurnMetrics {
	if c == nil {
		return schema.ChurnMetrics{Partial: true}
	}
	return *c
}

func derefRefactors(r *schema.RefactoringSignal) schema.RefactoringSignal {
	if r == nil {
		return schema.RefactoringSignal{Partial: true}
	}
	return *r
}
