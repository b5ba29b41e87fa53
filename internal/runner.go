package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/firodj/n64sora/internal/n64"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Analyze runs the whole pipeline over one ROM image.
func Analyze(filename string, raw []byte, table *n64.Table, cfg Config, log *logrus.Entry) (*Report, *SoraDocument, error) {
	doc, err := NewSoraDocument(filename, raw, table, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	res, err := NewEntryAnalyzer(doc).Process()
	if err != nil {
		return nil, doc, err
	}
	if doc.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		doc.Stage(StageEntrypoint).Debug(spew.Sdump(res.Registers.Written(), res.StoppedBy, res.SizeRegister, res.BSSPointerRegister))
	}

	cls, length := doc.Classify(res)
	return NewReport(doc, res, cls, length), doc, nil
}

// Runner analyzes a batch of ROM files.
type Runner struct {
	cfg   Config
	table *n64.Table
	repo  *SQLRepository
	log   *logrus.Logger
	RunID string
}

// NewRunner prepares a batch run. repo may be nil to skip recording history.
func NewRunner(cfg Config, table *n64.Table, repo *SQLRepository, log *logrus.Logger) *Runner {
	return &Runner{
		cfg:   cfg,
		table: table,
		repo:  repo,
		log:   log,
		RunID: uuid.NewString(),
	}
}

func (r *Runner) AnalyzeFile(path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &StageError{File: path, Stage: StageRead, Err: err}
	}
	report, _, err := Analyze(path, raw, r.table, r.cfg, logrus.NewEntry(r.log))
	if err != nil {
		return nil, err
	}
	report.RunID = r.RunID
	return report, nil
}

type job struct {
	index int
	path  string
}

type outcome struct {
	report *Report
	err    error
}

// Run analyzes paths with up to cfg.Jobs workers and writes the reports to
// w in input order. Unless KeepGoing is set the first failure aborts the run.
func (r *Runner) Run(ctx context.Context, paths []string, w io.Writer) error {
	var queue Queue[job]
	for i, p := range paths {
		queue.Push(job{i, p})
	}

	results := make([]outcome, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)

	for queue.Len() > 0 {
		j := queue.Pop()
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := r.AnalyzeFile(j.path)
			results[j.index] = outcome{report, err}
			if err != nil && !r.cfg.KeepGoing {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	// without KeepGoing, reports before the first failure in input order are
	// still written and saved
	var failed int
	for i, res := range results {
		if res.err != nil {
			if !r.cfg.KeepGoing {
				return res.err
			}
			failed++
			r.log.WithField("file", paths[i]).Error(res.err)
			continue
		}
		if res.report == nil {
			if waitErr != nil {
				return waitErr
			}
			continue
		}
		if err := res.report.Write(w, r.cfg); err != nil {
			return err
		}
		if r.repo != nil {
			if err := r.repo.Save(ctx, res.report.Record()); err != nil {
				return fmt.Errorf("saving %s: %w", paths[i], err)
			}
		}
	}

	if waitErr != nil {
		return waitErr
	}
	if failed > 0 {
		return &BatchError{Failed: failed, Total: len(paths)}
	}
	return nil
}

// BatchError reports how many files of a keep-going run failed.
type BatchError struct {
	Failed, Total int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d ROMs failed", e.Failed, e.Total)
}

// IsBatchError reports whether err only summarizes per-file failures that
// were already logged.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
