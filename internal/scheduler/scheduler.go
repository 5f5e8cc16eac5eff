// Package scheduler runs live row validation: a LIFO stack of rows and at
// most one validation call in flight.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"workbench-mapper/internal/common"
	"workbench-mapper/internal/validation"
)

// Validator validates one row on the server.
type Validator interface {
	ValidateRow(ctx context.Context, row int, values []string) (*validation.Result, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, row int, values []string) (*validation.Result, error)

func (f ValidatorFunc) ValidateRow(ctx context.Context, row int, values []string) (*validation.Result, error) {
	return f(ctx, row, values)
}

// RowFunc returns the current values of a row. ok is false when the row no
// longer exists.
type RowFunc func(row int) (values []string, ok bool)

// Job identifies one validation call.
type Job struct {
	Row int

	generation uint64
	version    uint64
}

// Handler applies the result of a job. The result is nil when the server had
// nothing to report for the row. Errors wrapping
// validation.ErrUnknownRecordKind halt the scheduler.
type Handler func(ctx context.Context, job Job, result *validation.Result) error

// Config tunes transport retries.
type Config struct {
	// MaxRetries is the number of retries after a failed call.
	MaxRetries uint64
	// Backoff is the base of the Fibonacci backoff between retries.
	Backoff time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 2,
		Backoff:    250 * time.Millisecond,
	}
}

// Scheduler validates enqueued rows one at a time, most recently enqueued
// first.
type Scheduler struct {
	validator Validator
	rows      RowFunc
	handle    Handler
	config    Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	stack      []int
	active     bool
	inFlight   int
	generation uint64
	versions   map[int]uint64
	err        error
	closed     bool
	idle       chan struct{}
}

// New creates an idle scheduler.
func New(validator Validator, rows RowFunc, handle Handler, config Config, logger *slog.Logger) *Scheduler {
	if config.Backoff <= 0 {
		config.Backoff = DefaultConfig().Backoff
	}

	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	return &Scheduler{
		validator: validator,
		rows:      rows,
		handle:    handle,
		config:    config,
		logger:    logger.With("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
		inFlight:  -1,
		versions:  map[int]uint64{},
		idle:      idle,
	}
}

// Enqueue moves rows to the top of the stack in order, so the last row is
// validated first. A result for a row that is enqueued again while its call
// is in flight is dropped.
func (s *Scheduler) Enqueue(rows ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.err != nil {
		s.logger.Debug("scheduler is not running, rows ignored", "rows", rows)

		return
	}

	for _, row := range rows {
		s.stack = append(common.Without(s.stack, row), row)
		s.versions[row]++
	}

	if s.active || len(s.stack) == 0 {
		return
	}

	s.active = true
	s.idle = make(chan struct{})

	go s.pump()
}

func (s *Scheduler) pump() {
	for {
		job, ok := s.next()
		if !ok {
			return
		}

		s.run(job)
	}
}

func (s *Scheduler) next() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = -1

	row, ok := common.Last(s.stack)
	if !ok || s.err != nil || s.closed {
		s.active = false
		close(s.idle)

		return Job{}, false
	}

	s.stack = s.stack[:len(s.stack)-1]
	s.inFlight = row

	return Job{Row: row, generation: s.generation, version: s.versions[row]}, true
}

func (s *Scheduler) run(job Job) {
	logger := s.logger.With("row", job.Row)

	values, ok := s.rows(job.Row)
	if !ok {
		logger.Debug("row is gone, skipped")

		return
	}

	result, err := s.validate(job, values)
	if err != nil {
		if errors.Is(err, validation.ErrUnknownRecordKind) {
			s.halt(err)

			return
		}

		if s.ctx.Err() == nil {
			logger.Warn("row validation failed, gave up", "error", err)
		}

		return
	}

	if !s.Current(job) {
		logger.Debug("stale result dropped")

		return
	}

	if err := s.handle(s.ctx, job, result); err != nil {
		if errors.Is(err, validation.ErrUnknownRecordKind) {
			s.halt(err)

			return
		}

		logger.Warn("failed to apply validation result", "error", err)
	}
}

func (s *Scheduler) validate(job Job, values []string) (*validation.Result, error) {
	var result *validation.Result

	b := retry.WithMaxRetries(s.config.MaxRetries, retry.NewFibonacci(s.config.Backoff))

	err := retry.Do(s.ctx, b, func(ctx context.Context) error {
		if !s.Current(job) {
			result = nil

			return nil
		}

		r, err := s.validator.ValidateRow(ctx, job.Row, values)
		if err != nil {
			if errors.Is(err, validation.ErrUnknownRecordKind) || ctx.Err() != nil {
				return err
			}

			s.logger.Debug("row validation failed, will retry", "row", job.Row, "error", err)

			return retry.RetryableError(err)
		}

		result = r

		return nil
	})

	return result, err
}

func (s *Scheduler) halt(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
	s.stack = nil
	s.generation++

	s.logger.Error("live validation halted", "error", err)
}

// Current reports whether the result of job may still be applied: the
// scheduler was not stopped and the row was not enqueued or removed since.
func (s *Scheduler) Current(job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return job.generation == s.generation && job.version == s.versions[job.Row]
}

// Stop clears the stack. A call in flight is not cancelled but its result
// is dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack = nil
	s.generation++
}

// Reset stops the scheduler and clears a halt.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack = nil
	s.generation++
	s.err = nil
	clear(s.versions)
}

// Close stops the scheduler for good and cancels a call in flight.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stack = nil
	s.generation++
	s.mu.Unlock()

	s.cancel()
}

// Remove drops rows from the stack. A result for a removed row is dropped.
func (s *Scheduler) Remove(rows ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.stack = common.Without(s.stack, row)
		s.versions[row]++
	}
}

// Err returns the error that halted the scheduler, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Pending returns the queued rows from bottom to top.
func (s *Scheduler) Pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.stack)
}

// InFlight returns the row being validated.
func (s *Scheduler) InFlight() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight, s.inFlight >= 0
}

// Busy reports whether a row is queued or being validated.
func (s *Scheduler) Busy(row int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight == row || slices.Contains(s.stack, row)
}

// Wait blocks until the scheduler is idle.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
