package compact

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/logging"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/output"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Scheduler enumerates a root, dispatches items to their processors and
// reconciles each directory once the batch has drained
type Scheduler struct {
	cfg        *config.Config
	backend    storage.Backend
	images     Processor
	videos     Processor
	reconciler *Reconciler
	formatter  output.Formatter
	logger     logging.Logger

	// progress is the shared completed-item counter
	progress atomic.Int32
	total    int

	outcomes   []models.Outcome
	outcomesMu sync.Mutex
}

// NewScheduler creates a scheduler for a single batch. formatter and
// logger may be nil.
func NewScheduler(
	cfg *config.Config,
	backend storage.Backend,
	images, videos Processor,
	reconciler *Reconciler,
	formatter output.Formatter,
	logger logging.Logger,
) *Scheduler {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Scheduler{
		cfg:        cfg,
		backend:    backend,
		images:     images,
		videos:     videos,
		reconciler: reconciler,
		formatter:  formatter,
		logger:     logger,
	}
}

// Run processes one batch. The returned error is reserved for failures
// that prevent the batch from starting; per-item problems live in the
// report outcomes. A cancelled context stops new dispatches, lets
// in-flight items finish and skips reconciliation.
func (s *Scheduler) Run(ctx context.Context, runID string) (*models.BatchReport, error) {
	report := &models.BatchReport{
		RunID:     runID,
		Root:      s.backend.Root(),
		Recursive: s.cfg.Processing.Recursive,
		StartTime: time.Now(),
		Status:    models.StatusSuccess,
	}

	inv, err := Discover(ctx, s.backend, s.cfg)
	if err != nil {
		report.Status = models.StatusFailed
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime)
		return report, err
	}
	report.Stats.Directories = len(inv.Dirs)

	s.logger.Info(ctx, "Discovered media", logging.Fields{
		"images":      inv.Count(models.KindImage),
		"videos":      inv.Count(models.KindVideo),
		"directories": len(inv.Dirs),
	})

	var pooled, inline []models.MediaItem
	for _, it := range inv.Items {
		if s.parallel(it.Kind) {
			pooled = append(pooled, it)
		} else {
			inline = append(inline, it)
		}
	}

	s.total = len(inv.Items)
	workers := s.cfg.Workers()
	if s.formatter != nil {
		s.formatter.Start(s.total, workers)
	}

	// Phase 1: worker pool fed by a producer, with sequential items running
	// inline at the same time
	tasks := make(chan models.MediaItem)
	var stopped atomic.Bool
	var workersWg sync.WaitGroup
	if len(pooled) > 0 {
		for i := 0; i < workers; i++ {
			workersWg.Add(1)
			go s.runWorker(ctx, tasks, &workersWg)
		}
	}

	go s.produce(ctx, pooled, tasks, &stopped)

	for _, it := range inline {
		if ctx.Err() != nil {
			stopped.Store(true)
			break
		}
		s.collect(s.process(ctx, it))
	}

	workersWg.Wait()
	// a cancel that arrives after the last dispatch leaves a complete batch
	cancelled := stopped.Load()

	sort.Slice(s.outcomes, func(i, j int) bool {
		return s.outcomes[i].File < s.outcomes[j].File
	})
	report.Outcomes = s.outcomes

	// Phase 2: pairing, only for a drained batch whose originals were backed up.
	// Every item was dispatched, so a late cancel does not interrupt it.
	if !cancelled && s.cfg.Processing.BackupOriginals {
		pairCtx := context.WithoutCancel(ctx)
		for _, dir := range inv.Dirs {
			report.Reconciliations = append(report.Reconciliations, s.reconcile(pairCtx, dir))
		}
	}

	// Phase 3: one contiguous log block per outcome, in report order
	s.writeLog(ctx, report)

	report.Tally()
	switch {
	case cancelled:
		report.Status = models.StatusCancelled
	case report.Stats.Errored > 0:
		report.Status = models.StatusPartial
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)

	if s.formatter != nil {
		s.formatter.Complete(report)
	}

	return report, nil
}

func (s *Scheduler) parallel(kind models.MediaKind) bool {
	if kind == models.KindVideo {
		return s.cfg.Video.Parallel
	}
	return s.cfg.Image.Parallel
}

// produce hands each item to a free worker. The channel is unbuffered, so
// an item is dispatched only once a worker has taken it. stopped is set
// when cancellation leaves items undispatched.
func (s *Scheduler) produce(ctx context.Context, items []models.MediaItem, tasks chan<- models.MediaItem, stopped *atomic.Bool) {
	defer close(tasks)
	for _, it := range items {
		if ctx.Err() != nil {
			stopped.Store(true)
			return
		}
		select {
		case <-ctx.Done():
			stopped.Store(true)
			return
		case tasks <- it:
		}
	}
}

// runWorker processes items until the producer closes the channel.
// Cancellation is handled by the producer so a taken item always finishes.
func (s *Scheduler) runWorker(ctx context.Context, tasks <-chan models.MediaItem, wg *sync.WaitGroup) {
	defer wg.Done()
	for it := range tasks {
		s.collect(s.process(ctx, it))
	}
}

func (s *Scheduler) process(ctx context.Context, item models.MediaItem) models.Outcome {
	if item.Kind == models.KindVideo {
		return s.videos.Process(ctx, item)
	}
	return s.images.Process(ctx, item)
}

func (s *Scheduler) collect(o models.Outcome) {
	s.outcomesMu.Lock()
	defer s.outcomesMu.Unlock()

	s.outcomes = append(s.outcomes, o)
	n := int(s.progress.Add(1))

	if s.formatter != nil {
		s.formatter.Progress(output.ProgressUpdate{
			Type:    output.UpdateItemComplete,
			Current: n,
			Total:   s.total,
			Outcome: &o,
		})
	}
}

func (s *Scheduler) reconcile(ctx context.Context, dir models.DirectoryTriple) models.ReconcileResult {
	res, err := s.reconciler.Reconcile(ctx, dir)
	if err != nil {
		res.Failures = append(res.Failures, models.RelocationFailure{Path: dir.Source, Error: err.Error()})
	}
	if s.formatter != nil {
		s.formatter.Progress(output.ProgressUpdate{
			Type:      output.UpdateReconciled,
			Current:   int(s.progress.Load()),
			Total:     s.total,
			Reconcile: &res,
		})
	}
	return res
}

func (s *Scheduler) writeLog(ctx context.Context, report *models.BatchReport) {
	for _, o := range report.Outcomes {
		entries := make([]logging.Entry, len(o.Messages))
		for i, m := range o.Messages {
			entries[i] = logging.Entry{
				Level:   severityLevel(m.Severity),
				Message: m.Text,
				Fields:  logging.Fields{"file": o.File},
			}
		}
		s.logger.WriteBlock(ctx, entries)
	}

	for _, rec := range report.Reconciliations {
		for _, m := range rec.Moved {
			s.logger.Info(ctx, "Moved unpaired file", logging.Fields{"file": m.From, "to": m.To})
		}
		for _, f := range rec.Failures {
			s.logger.Warn(ctx, "Could not move unpaired file", logging.Fields{"file": f.Path, "error": f.Error})
		}
	}
}

func severityLevel(sev models.Severity) logging.Level {
	switch sev {
	case models.SeverityDebug:
		return logging.DebugLevel
	case models.SeverityWarning:
		return logging.WarnLevel
	case models.SeverityError:
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}
