// Package engine implements the clipboard synchronization loop.
//
// An Engine owns a Transport, a clipboard Backend, the derived key and two
// independent change gates:
//
//   - outbound remembers the hash last published (or last written by an
//     inbound update, so that the next poll does not publish it back);
//   - inbound remembers the hash last applied to the clipboard.
//
// Two contexts touch that state: the poll loop (Sync, Poll, Send) and the
// transport's delivery goroutine(s) calling HandleMessage. Clipboard reads
// together with the outbound check, and inbound checks together with the
// clipboard write, run under one mutex because the platform clipboard is not
// safe for concurrent access and the check/record pairs must be atomic.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.klb.dev/cbportal/internal/clip"
	"go.klb.dev/cbportal/internal/crypto"
	"go.klb.dev/cbportal/internal/gate"
	"go.klb.dev/cbportal/internal/logging"
	"go.klb.dev/cbportal/internal/payload"
)

// DefaultInterval is the clipboard poll interval used when Config.Interval is zero.
const DefaultInterval = 2 * time.Second

// ErrNothingToSend is returned by Send when the clipboard is blank.
var ErrNothingToSend = errors.New("clipboard is empty, nothing to send")

// Transport is a publish/subscribe channel bound to one topic.
type Transport interface {
	// Publish sends msg to every subscriber of the topic. A retained message
	// is also delivered to subscribers that join later.
	Publish(ctx context.Context, msg []byte, retained bool) error

	// Subscribe registers handler for messages on the topic. The transport
	// calls handler on its own goroutine(s) and keeps the subscription
	// across reconnects.
	Subscribe(ctx context.Context, handler func(msg []byte)) error

	// Close releases the connection.
	Close() error
}

// Config holds what an Engine needs.
type Config struct {
	Transport Transport
	Backend   clip.Backend
	Key       *[crypto.KeySize]byte
	// Interval between clipboard polls in Sync. Zero means DefaultInterval.
	Interval time.Duration
}

// Stats is a snapshot of engine activity.
type Stats struct {
	Started     time.Time
	Backend     string
	Interval    time.Duration
	Published   int64
	Applied     int64
	Rejected    int64
	Duplicates  int64
	LastSent    string
	LastApplied string
}

// Engine synchronizes one clipboard with one topic.
type Engine struct {
	transport Transport
	backend   clip.Backend
	sampler   *clip.Sampler
	key       *[crypto.KeySize]byte
	interval  time.Duration
	started   time.Time

	// clipMu serializes clipboard access and the gate check/record pairs
	// that go with it.
	clipMu   sync.Mutex
	outbound gate.Gate
	inbound  gate.Gate

	// appliedCh is signalled (non-blocking) after each inbound apply.
	appliedCh chan struct{}

	published  atomic.Int64
	applied    atomic.Int64
	rejected   atomic.Int64
	duplicates atomic.Int64
}

// New returns an Engine. It does not touch the transport or clipboard.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Transport == nil:
		return nil, errors.New("engine: transport is required")
	case cfg.Backend == nil:
		return nil, errors.New("engine: clipboard backend is required")
	case cfg.Key == nil:
		return nil, errors.New("engine: key is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		transport: cfg.Transport,
		backend:   cfg.Backend,
		sampler:   clip.NewSampler(cfg.Backend),
		key:       cfg.Key,
		interval:  interval,
		started:   time.Now(),
		appliedCh: make(chan struct{}, 1),
	}, nil
}

// Send samples the clipboard once and publishes it. Returns ErrNothingToSend
// for a blank clipboard.
func (e *Engine) Send(ctx context.Context, retained bool) error {
	s, prev, act, err := e.claim()
	if err != nil {
		return err
	}
	if s.Hash == "" {
		return ErrNothingToSend
	}
	if !act {
		return nil
	}
	if err := e.publish(ctx, s, retained); err != nil {
		e.outbound.Commit(s.Hash, prev)
		return err
	}
	return nil
}

// Receive subscribes and waits until one payload has been applied or wait
// elapses. Messages that fail authentication are dropped and do not end the
// wait. Reports whether the clipboard was updated.
func (e *Engine) Receive(ctx context.Context, wait time.Duration) (bool, error) {
	if err := e.transport.Subscribe(ctx, e.HandleMessage); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	slog.Debug("waiting for clipboard content", "wait", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-e.appliedCh:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Sync subscribes and polls the clipboard every interval until ctx is
// cancelled. The poll in progress when ctx is cancelled runs to completion
// before Sync returns. Cancellation is not an error.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.transport.Subscribe(ctx, e.HandleMessage); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	slog.Info("sync started", "interval", e.interval, "backend", e.backend.Name())

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			break
		}
		if _, err := e.Poll(ctx); err != nil {
			slog.Warn("poll failed", "err", err)
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	slog.Info("sync stopped", "published", e.published.Load(), "applied", e.applied.Load())
	return nil
}

// Poll runs one outbound iteration: sample, and publish if the content
// differs from what was last sent or applied. Reports whether it published.
// A failed publish is not recorded, so the next poll retries it.
func (e *Engine) Poll(ctx context.Context) (bool, error) {
	s, prev, act, err := e.claim()
	if err != nil || !act {
		return false, err
	}
	if err := e.publish(ctx, s, false); err != nil {
		// Roll back unless an inbound apply already moved the gate on.
		e.outbound.Commit(s.Hash, prev)
		return false, err
	}
	return true, nil
}

// claim samples the clipboard and, if the content is new, records it in the
// outbound gate, all under clipMu. prev is the value to restore if the publish
// fails. A blank clipboard yields a zero Sample and act == false.
func (e *Engine) claim() (s clip.Sample, prev string, act bool, err error) {
	e.clipMu.Lock()
	defer e.clipMu.Unlock()

	s, ok, err := e.sampler.Sample()
	if err != nil {
		return clip.Sample{}, "", false, fmt.Errorf("sample: %w", err)
	}
	if !ok {
		return clip.Sample{}, "", false, nil
	}
	prev, act = e.outbound.Check(s.Hash)
	if act {
		e.outbound.Record(s.Hash)
	}
	return s, prev, act, nil
}

func (e *Engine) publish(ctx context.Context, s clip.Sample, retained bool) error {
	p, err := payload.Encode(s.Data, s.Type, e.key)
	if err != nil {
		return err
	}
	raw, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := e.transport.Publish(ctx, raw, retained); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	e.published.Add(1)
	logging.LogContent("clipboard sent", s.Type, s.Hash, s.Data)
	return nil
}

// HandleMessage is the inbound handler registered with the transport. It is
// safe to call from several goroutines at once.
func (e *Engine) HandleMessage(raw []byte) {
	p, err := payload.Unmarshal(raw)
	if err != nil {
		e.rejected.Add(1)
		slog.Warn("dropping malformed message", "err", err)
		return
	}
	data, err := payload.Decode(p, e.key)
	if err != nil {
		e.rejected.Add(1)
		if errors.Is(err, crypto.ErrAuthentication) {
			slog.Warn("dropping message that failed authentication; content may have been tampered with or encrypted with a different password",
				"hash", payload.Short(p.Hash), "err", err)
		} else {
			slog.Warn("dropping undecodable message", "hash", payload.Short(p.Hash), "err", err)
		}
		return
	}

	e.clipMu.Lock()
	defer e.clipMu.Unlock()

	if !e.inbound.ShouldAct(p.Hash) {
		e.duplicates.Add(1)
		slog.Debug("ignoring already applied content", "hash", payload.Short(p.Hash))
		return
	}
	if e.outbound.Last() == p.Hash {
		// Our own publish echoed back by the broker, or content that is
		// already on the clipboard.
		e.inbound.Record(p.Hash)
		e.duplicates.Add(1)
		slog.Debug("ignoring content already on the clipboard", "hash", payload.Short(p.Hash))
		return
	}
	if err := clip.Apply(e.backend, data, p.Type); err != nil {
		slog.Error("clipboard write failed", "err", err)
		return
	}
	e.inbound.Record(p.Hash)
	e.outbound.Record(p.Hash)
	e.applied.Add(1)
	logging.LogContent("clipboard received", p.Type, p.Hash, data)

	select {
	case e.appliedCh <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of engine activity.
func (e *Engine) Stats() Stats {
	return Stats{
		Started:     e.started,
		Backend:     e.backend.Name(),
		Interval:    e.interval,
		Published:   e.published.Load(),
		Applied:     e.applied.Load(),
		Rejected:    e.rejected.Load(),
		Duplicates:  e.duplicates.Load(),
		LastSent:    e.outbound.Last(),
		LastApplied: e.inbound.Last(),
	}
}

// Close releases the transport.
func (e *Engine) Close() error {
	return e.transport.Close()
}
