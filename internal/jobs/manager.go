// Package jobs runs build pipelines in the background on behalf of the
// HTTP API. Each job owns a directory under the storage root holding its
// uploaded inputs and produced artifacts; status and results live in the
// store.
package jobs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/capstruct/internal/docio"
	"github.com/sells-group/capstruct/internal/model"
	"github.com/sells-group/capstruct/internal/pipeline"
	"github.com/sells-group/capstruct/internal/render"
	"github.com/sells-group/capstruct/internal/store"
	"github.com/sells-group/capstruct/pkg/marketcap"
)

// ErrNoMarketCapSource means a submission carried neither an explicit
// market cap nor a ticker to resolve one from.
var ErrNoMarketCapSource = eris.New("jobs: submission needs market_cap_mm or ticker")

// Input file names under each job's input dir.
const (
	BalanceSheetFile = "balance_sheet.json"
	MetadataFile     = "metadata.json"
	DebtNoteFile     = "debt_note.html"
	LeaseNoteFile    = "lease_note.html"
)

// Output file names under each job's output dir.
const (
	BuiltJSONFile  = "built.json"
	AssessmentFile = "assessment.json"
	HTMLFile       = "capital_structure.html"
)

// Submission is one build request: the four documents plus the market
// cap source. An explicit MarketCapMM always wins over the ticker.
type Submission struct {
	BalanceSheet io.Reader
	Metadata     io.Reader
	DebtNote     io.Reader
	LeaseNote    io.Reader

	Ticker      string
	MarketCapMM *float64
}

// Manager schedules and runs build jobs with bounded concurrency.
type Manager struct {
	store   store.Store
	mktcap  *marketcap.Service
	root    string
	opts    pipeline.Options
	baseCtx context.Context

	g  *errgroup.Group
	wg sync.WaitGroup
}

// NewManager creates a Manager. baseCtx bounds the lifetime of
// background job runs; maxConcurrent caps how many run at once.
func NewManager(baseCtx context.Context, st store.Store, mc *marketcap.Service, root string, maxConcurrent int, opts pipeline.Options) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(maxConcurrent)
	return &Manager{
		store:   st,
		mktcap:  mc,
		root:    root,
		opts:    opts,
		baseCtx: baseCtx,
		g:       g,
	}
}

// JobDir returns the directory owned by a job.
func (m *Manager) JobDir(jobID string) string {
	return filepath.Join(m.root, jobID)
}

// InputDir returns the directory holding a job's uploaded documents.
func (m *Manager) InputDir(jobID string) string {
	return filepath.Join(m.root, jobID, "input")
}

// OutputDir returns the directory holding a job's artifacts.
func (m *Manager) OutputDir(jobID string) string {
	return filepath.Join(m.root, jobID, "output")
}

// Submit validates the submission, persists the inputs, and schedules
// the build. It returns as soon as the job is queued.
func (m *Manager) Submit(ctx context.Context, sub Submission) (*model.Job, error) {
	if sub.MarketCapMM == nil && strings.TrimSpace(sub.Ticker) == "" {
		return nil, ErrNoMarketCapSource
	}

	job, err := m.store.CreateJob(ctx, strings.ToUpper(strings.TrimSpace(sub.Ticker)))
	if err != nil {
		return nil, err
	}

	if err := m.writeInputs(job.ID, sub); err != nil {
		if fErr := m.store.FailJob(ctx, job.ID, err.Error()); fErr != nil {
			zap.L().Warn("jobs: failed to mark job failed", zap.String("job_id", job.ID), zap.Error(fErr))
		}
		return nil, err
	}

	mcOverride := sub.MarketCapMM

	m.wg.Add(1)
	go func() {
		m.g.Go(func() error {
			defer m.wg.Done()
			m.run(m.baseCtx, job, mcOverride)
			return nil // individual failures never abort the group
		})
	}()

	return job, nil
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Get returns a job by ID.
func (m *Manager) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return m.store.GetJob(ctx, jobID)
}

// List returns jobs matching the filter.
func (m *Manager) List(ctx context.Context, filter store.JobFilter) ([]model.Job, error) {
	return m.store.ListJobs(ctx, filter)
}

// Cleanup removes a job's directory and everything in it. The store row
// stays so the job remains listable.
func (m *Manager) Cleanup(ctx context.Context, jobID string) error {
	if _, err := m.store.GetJob(ctx, jobID); err != nil {
		return err
	}
	if err := os.RemoveAll(m.JobDir(jobID)); err != nil {
		return eris.Wrapf(err, "jobs: cleanup %s", jobID)
	}
	return nil
}

func (m *Manager) writeInputs(jobID string, sub Submission) error {
	dir := m.InputDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "jobs: create input dir for %s", jobID)
	}
	for _, f := range []struct {
		name string
		src  io.Reader
	}{
		{BalanceSheetFile, sub.BalanceSheet},
		{MetadataFile, sub.Metadata},
		{DebtNoteFile, sub.DebtNote},
		{LeaseNoteFile, sub.LeaseNote},
	} {
		if f.src == nil {
			return eris.Errorf("jobs: missing input document %s", f.name)
		}
		dst, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			return eris.Wrapf(err, "jobs: create %s", f.name)
		}
		if _, err := io.Copy(dst, f.src); err != nil {
			dst.Close()
			return eris.Wrapf(err, "jobs: write %s", f.name)
		}
		if err := dst.Close(); err != nil {
			return eris.Wrapf(err, "jobs: close %s", f.name)
		}
	}
	return nil
}

// resolveMarketCap applies the override-wins rule.
func (m *Manager) resolveMarketCap(ctx context.Context, job *model.Job, override *float64) (*float64, string, error) {
	if override != nil {
		return override, "override", nil
	}
	if m.mktcap == nil {
		return nil, "", ErrNoMarketCapSource
	}
	res, err := m.mktcap.Lookup(ctx, job.Ticker)
	if err != nil {
		return nil, "", eris.Wrapf(err, "jobs: market cap lookup for %s", job.Ticker)
	}
	mc := res.MarketCapMM
	return &mc, res.Source, nil
}

func (m *Manager) run(ctx context.Context, job *model.Job, mcOverride *float64) {
	log := zap.L().With(zap.String("job_id", job.ID))

	if err := m.store.UpdateJobStatus(ctx, job.ID, model.JobStatusRunning); err != nil {
		log.Error("jobs: mark running failed", zap.Error(err))
		return
	}

	result, err := m.execute(ctx, job, mcOverride)
	if err != nil {
		log.Error("jobs: build failed", zap.Error(err))
		if fErr := m.store.FailJob(ctx, job.ID, err.Error()); fErr != nil {
			log.Error("jobs: mark failed failed", zap.Error(fErr))
		}
		return
	}

	if err := m.store.UpdateJobResult(ctx, job.ID, result); err != nil {
		log.Error("jobs: record result failed", zap.Error(err))
		return
	}
	log.Info("jobs: build complete", zap.Int("score", result.Score))
}

func (m *Manager) execute(ctx context.Context, job *model.Job, mcOverride *float64) (*model.JobResult, error) {
	mc, mcSource, err := m.resolveMarketCap(ctx, job, mcOverride)
	if err != nil {
		return nil, err
	}

	in := m.InputDir(job.ID)
	res, err := pipeline.Run(ctx, pipeline.Inputs{
		BalanceSheetPath: filepath.Join(in, BalanceSheetFile),
		MetadataPath:     filepath.Join(in, MetadataFile),
		DebtNotePath:     filepath.Join(in, DebtNoteFile),
		LeaseNotePath:    filepath.Join(in, LeaseNoteFile),
		MarketCapMM:      mc,
	}, m.opts)
	if err != nil {
		return nil, err
	}

	out := m.OutputDir(job.ID)
	builtPath := filepath.Join(out, BuiltJSONFile)
	if err := docio.WriteJSON(builtPath, res.Built); err != nil {
		return nil, err
	}
	if err := docio.WriteJSON(filepath.Join(out, AssessmentFile), res.Assessment); err != nil {
		return nil, err
	}

	htmlPath := filepath.Join(out, HTMLFile)
	if err := os.WriteFile(htmlPath, []byte(render.Render(res.Built)), 0o644); err != nil {
		return nil, eris.Wrapf(err, "jobs: write html for %s", job.ID)
	}

	return &model.JobResult{
		BuiltJSONPath:   builtPath,
		HTMLPath:        htmlPath,
		MarketCapMM:     mc,
		MarketCapSource: mcSource,
		Score:           res.Assessment.Score,
	}, nil
}
