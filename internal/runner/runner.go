package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/collegenav/internal/institution"
	"github.com/pfrederiksen/collegenav/internal/logger"
)

const DefaultMaxAttempts = 3

// State is a step of the per-record state machine
type State int

const (
	StateInit State = iota
	StateSearching
	StateMatched
	StateExtracting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSearching:
		return "searching"
	case StateMatched:
		return "matched"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Finder locates an institution's detail page
type Finder interface {
	Find(ctx context.Context, in institution.InputRecord) (string, error)
}

// Extractor reads a detail page
type Extractor interface {
	Extract(ctx context.Context, locator string, in institution.InputRecord) (*institution.InstitutionRecord, []institution.ProgramRecord, error)
}

// Writer persists the accumulated tables
type Writer interface {
	Write(schools []institution.InstitutionRecord, programs []institution.ProgramRecord) error
	Path() string
}

// Options configures a Runner
type Options struct {
	MaxAttempts int           // 0 means DefaultMaxAttempts
	RetryDelay  time.Duration // pause between attempts of one record
	Logger      *logger.Logger
	Metrics     *logger.Metrics
	OnOutcome   func(Outcome) // called after each record, may be nil
}

// Runner processes records sequentially with one Finder and Extractor
type Runner struct {
	finder    Finder
	extractor Extractor
	writer    Writer
	opts      Options

	schools  []institution.InstitutionRecord
	programs []institution.ProgramRecord
}

// New creates a Runner
func New(finder Finder, extractor Extractor, writer Writer, opts Options) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.NewMetrics()
	}
	return &Runner{
		finder:    finder,
		extractor: extractor,
		writer:    writer,
		opts:      opts,
	}
}

// Outcome is the result of processing one record
type Outcome struct {
	Input    institution.InputRecord
	State    State // StateDone or StateFailed
	Stage    State // the step the last attempt failed in, for failed records
	Attempts int
	Programs int
	Duration time.Duration
	Err      error
}

// Status is a short label for the outcome
func (o Outcome) Status() string {
	switch institution.Classify(o.Err) {
	case institution.ClassNone:
		return "done"
	case institution.ClassNotFound:
		return "not found"
	case institution.ClassPersistence:
		return "persistence failure"
	case institution.ClassCanceled:
		return "canceled"
	}
	return "abandoned"
}

// Summary describes a run
type Summary struct {
	Outcomes   []Outcome
	Total      int // records in the input
	Done       int
	NotFound   int
	Abandoned  int
	Schools    int
	Programs   int
	OutputPath string
	Duration   time.Duration
	Metrics    logger.Snapshot
}

// Run processes inputs in order. It returns a nil error when every record was attempted, even
// if some were not found or abandoned. Persistence failures and cancellation stop the run and
// are returned along with the summary so far.
func (r *Runner) Run(ctx context.Context, inputs []institution.InputRecord) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		Total:      len(inputs),
		OutputPath: r.writer.Path(),
	}
	finish := func(err error) (*Summary, error) {
		summary.Schools = len(r.schools)
		summary.Programs = len(r.programs)
		summary.Duration = time.Since(start)
		summary.Metrics = r.opts.Metrics.Snapshot()
		return summary, err
	}

	r.opts.Metrics.SetGauge("records.total", float64(len(inputs)))

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		r.opts.Logger.Info("Processing record", logger.Fields{
			"position":    in.Position,
			"index":       i + 1,
			"total":       len(inputs),
			"institution": in.Name,
		})

		outcome := r.process(ctx, in)
		summary.Outcomes = append(summary.Outcomes, outcome)
		r.record(summary, outcome)

		if r.opts.OnOutcome != nil {
			r.opts.OnOutcome(outcome)
		}

		switch institution.Classify(outcome.Err) {
		case institution.ClassPersistence, institution.ClassCanceled:
			return finish(outcome.Err)
		}
	}

	return finish(nil)
}

// process runs the attempts for one record
func (r *Runner) process(ctx context.Context, in institution.InputRecord) Outcome {
	start := time.Now()
	outcome := Outcome{Input: in, State: StateFailed}
	fields := logger.Fields{"position": in.Position, "institution": in.Name}

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		outcome.Attempts = attempt
		state := StateInit

		school, programs, err := r.attempt(ctx, in, &state)
		if err == nil {
			outcome.State = StateDone
			outcome.Stage = StateDone
			outcome.Programs = len(programs)
			outcome.Err = r.commit(*school, programs)
			break
		}

		outcome.Stage = state
		outcome.Err = err

		class := institution.Classify(err)
		if class != institution.ClassTransient {
			break
		}

		r.opts.Logger.Warn("Attempt failed", withFields(fields, logger.Fields{
			"attempt": attempt,
			"of":      r.opts.MaxAttempts,
			"stage":   state.String(),
		}), err)

		if attempt < r.opts.MaxAttempts {
			if err := sleep(ctx, r.opts.RetryDelay); err != nil {
				outcome.Err = err
				break
			}
		}
	}

	outcome.Duration = time.Since(start)

	switch {
	case outcome.State == StateDone && outcome.Err != nil:
		r.opts.Logger.Error("Writing output failed", fields, outcome.Err)
	case outcome.State == StateDone:
		r.opts.Logger.Info("Record done", withFields(fields, logger.Fields{
			"attempts": outcome.Attempts,
			"programs": outcome.Programs,
		}))
	default:
		switch institution.Classify(outcome.Err) {
		case institution.ClassNotFound:
			r.opts.Logger.Warn("Institution not found", fields, outcome.Err)
		case institution.ClassTransient:
			r.opts.Logger.Error("Record abandoned", withFields(fields, logger.Fields{"attempts": outcome.Attempts}), outcome.Err)
		case institution.ClassPersistence:
			r.opts.Logger.Error("Persisting ids failed", fields, outcome.Err)
		}
	}

	return outcome
}

// attempt runs one pass of the state machine, leaving the step it reached in state
func (r *Runner) attempt(ctx context.Context, in institution.InputRecord, state *State) (*institution.InstitutionRecord, []institution.ProgramRecord, error) {
	*state = StateSearching
	locator, err := r.finder.Find(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	*state = StateMatched

	*state = StateExtracting
	school, programs, err := r.extractor.Extract(ctx, locator, in)
	if err != nil {
		return nil, nil, err
	}
	if school == nil {
		return nil, nil, institution.Transient("extracting", errors.New("no record returned"))
	}
	return school, programs, nil
}

// commit appends a finished record and rewrites the output
func (r *Runner) commit(school institution.InstitutionRecord, programs []institution.ProgramRecord) error {
	r.schools = append(r.schools, school)
	r.programs = append(r.programs, programs...)

	if err := r.writer.Write(r.schools, r.programs); err != nil {
		var perr *institution.PersistenceError
		if errors.As(err, &perr) {
			return err
		}
		return &institution.PersistenceError{Op: "write output", Path: r.writer.Path(), Err: err}
	}
	return nil
}

func (r *Runner) record(summary *Summary, o Outcome) {
	m := r.opts.Metrics
	m.AddCounter("record.attempts", int64(o.Attempts))
	m.RecordTiming("record.duration", o.Duration)

	if o.State == StateDone {
		summary.Done++
		m.IncrCounter("records.done")
		return
	}
	switch institution.Classify(o.Err) {
	case institution.ClassNotFound:
		summary.NotFound++
		m.IncrCounter("records.not_found")
	case institution.ClassTransient:
		summary.Abandoned++
		m.IncrCounter("records.abandoned")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func withFields(base, extra logger.Fields) logger.Fields {
	merged := make(logger.Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
