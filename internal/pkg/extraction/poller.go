package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval matches the cadence the extraction service expects.
const DefaultPollInterval = 3 * time.Second

// maxPollFailures is how many consecutive failed polls of a job end the
// subscription.
const maxPollFailures = 3

// Poller polls job status on a fixed interval.
type Poller struct {
	backend  Backend
	interval time.Duration
}

func NewPoller(backend Backend, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{backend: backend, interval: interval}
}

// Subscription follows a set of jobs until all are terminal, Stop is
// called, or the subscribing context ends.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	statuses map[string]JobStatus
	err      error
}

// Subscribe starts polling jobIDs. onUpdate, if set, is called from the
// polling goroutine for every status received.
func (p *Poller) Subscribe(ctx context.Context, jobIDs []string, onUpdate func(JobStatus)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		cancel:   cancel,
		done:     make(chan struct{}),
		statuses: make(map[string]JobStatus, len(jobIDs)),
	}
	go p.run(ctx, sub, jobIDs, onUpdate)
	return sub
}

// Stop ends polling and waits for the polling goroutine to exit.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Statuses returns the last status seen for each job.
func (s *Subscription) Statuses() map[string]JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]JobStatus, len(s.statuses))
	for id, st := range s.statuses {
		out[id] = st
	}
	return out
}

// Err is the reason polling ended early, or nil.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (p *Poller) run(ctx context.Context, sub *Subscription, jobIDs []string, onUpdate func(JobStatus)) {
	defer close(sub.done)
	defer sub.cancel()

	pending := make(map[string]int, len(jobIDs))
	for _, id := range jobIDs {
		pending[id] = 0
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		for id := range pending {
			st, err := p.backend.PollStatus(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					sub.fail(ctx.Err())
					return
				}
				pending[id]++
				slog.Warn("Extraction poll failed", "job_id", id, "attempt", pending[id], "error", err)
				if pending[id] >= maxPollFailures || errors.Is(err, ErrJobNotFound) {
					sub.fail(fmt.Errorf("polling job %s: %w", id, err))
					return
				}
				continue
			}
			pending[id] = 0

			sub.mu.Lock()
			sub.statuses[id] = st
			sub.mu.Unlock()
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.State.IsTerminal() {
				delete(pending, id)
			}
		}

		if len(pending) == 0 {
			return
		}

		select {
		case <-ctx.Done():
			sub.fail(ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

// Await polls a single job to a terminal state.
func (p *Poller) Await(ctx context.Context, jobID string) (JobStatus, error) {
	sub := p.Subscribe(ctx, []string{jobID}, nil)
	<-sub.Done()

	if err := sub.Err(); err != nil {
		return JobStatus{}, err
	}
	st := sub.Statuses()[jobID]
	if st.State == JobFailed {
		msg := st.Error
		if msg == "" {
			msg = "no reason given"
		}
		return st, fmt.Errorf("%w: %s", ErrJobFailed, msg)
	}
	return st, nil
}
