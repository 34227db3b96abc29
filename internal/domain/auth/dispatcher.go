package auth

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Anvoria/authgate/internal/domain/token"
)

// DefaultQueueSize is the dispatcher buffer used when none is given
const DefaultQueueSize = 1024

// ErrQueueFull is returned when a delegation is dropped because the dispatcher
// queue is full or closed
var ErrQueueFull = errors.New("outcome queue full")

type outcomeKind uint8

const (
	outcomeAccepted outcomeKind = iota
	outcomeRejected
	outcomeDelegation
)

type outcome struct {
	kind        outcomeKind
	tokenType   token.Type
	reason      Reason
	identity    *VerifiedIdentity
	fingerprint string
}

// Dispatcher moves verification outcomes off the request path. Outcomes go
// into a bounded queue drained by a single worker that calls the wrapped
// Recorder and Auditor. When the queue is full the outcome is dropped and
// counted. Dispatcher implements both Recorder and Auditor and never blocks.
type Dispatcher struct {
	recorder Recorder
	auditor  Auditor
	logger   *slog.Logger

	queue   chan outcome
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	done    chan struct{}
}

// NewDispatcher starts a worker delivering to recorder and auditor, either of
// which may be nil. Close must be called to stop it.
func NewDispatcher(size int, recorder Recorder, auditor Auditor, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		recorder: recorder,
		auditor:  auditor,
		logger:   logger,
		queue:    make(chan outcome, size),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for o := range d.queue {
		d.deliver(o)
	}
}

func (d *Dispatcher) deliver(o outcome) {
	switch o.kind {
	case outcomeAccepted:
		d.recorder.Accepted(o.tokenType)
	case outcomeRejected:
		d.recorder.Rejected(o.reason, o.tokenType)
	case outcomeDelegation:
		if err := d.auditor.RecordDelegation(o.identity, o.fingerprint); err != nil {
			d.logger.Error("Failed to record delegation audit",
				"subject_id", o.identity.SubjectID,
				"fingerprint", o.fingerprint,
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) enqueue(o outcome) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.closed {
		select {
		case d.queue <- o:
			return true
		default:
		}
	}
	if n := d.dropped.Add(1); n&(n-1) == 0 {
		// logged at 1, 2, 4, 8... drops
		d.logger.Warn("Dropping verification outcomes", "dropped_total", n)
	}
	return false
}

// Accepted queues an accepted outcome for the wrapped recorder
func (d *Dispatcher) Accepted(t token.Type) {
	if d.recorder == nil {
		return
	}
	d.enqueue(outcome{kind: outcomeAccepted, tokenType: t})
}

// Rejected queues a rejection for the wrapped recorder
func (d *Dispatcher) Rejected(r Reason, expected token.Type) {
	if d.recorder == nil {
		return
	}
	d.enqueue(outcome{kind: outcomeRejected, reason: r, tokenType: expected})
}

// RecordDelegation queues a delegated identity for the wrapped auditor. The
// only error it reports is ErrQueueFull; auditor failures are logged by the
// worker.
func (d *Dispatcher) RecordDelegation(identity *VerifiedIdentity, fingerprint string) error {
	if d.auditor == nil || identity == nil {
		return nil
	}
	if !d.enqueue(outcome{kind: outcomeDelegation, identity: identity, fingerprint: fingerprint}) {
		return ErrQueueFull
	}
	return nil
}

// Dropped returns the number of outcomes discarded so far
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Pending returns the number of queued outcomes not yet delivered
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting outcomes and waits for the queued ones to be delivered
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
	return nil
}
