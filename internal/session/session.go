// Package session implements the process-lifetime root: the
// capability/source-provider/query-engine registries and the
// {NEW→STARTING→RUNNING→STOPPING→STOPPED} lifecycle state machine that
// governs when dispatches are accepted.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/queryengine"
	"github.com/cheshire-mcp/cheshire/internal/registry"
	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
	"github.com/cheshire-mcp/cheshire/internal/transport"
	"github.com/cheshire-mcp/cheshire/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// State is one point in the session's monotonic lifecycle.
type State string

const (
	StateNew      State = "NEW"
	StateStarting State = "STARTING"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
	StateStopped  State = "STOPPED"
)

// transitions lists every legal (from, to) pair. Any other pair is
// rejected by Transition, keeping the state machine monotonic.
var transitions = map[State]State{
	StateNew:      StateStarting,
	StateStarting: StateRunning,
	StateRunning:  StateStopping,
	StateStopping: StateStopped,
}

// ErrIllegalTransition is returned by transitionTo when asked to move to a
// state that does not legally follow the current one.
type ErrIllegalTransition struct {
	From, To State
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("session: illegal transition from %s to %s", e.From, e.To)
}

// Session is the capability/query-engine/source-provider root. Transports
// are tracked separately (they are shared, ref-counted containers rather
// than named singletons) but still drained last on Stop, as 
// requires.
type Session struct {
	mu    sync.RWMutex
	state State

	Capabilities    *registry.Registry[*capability.Capability]
	QueryEngines    *registry.Registry[queryengine.QueryEngine]
	SourceProviders *registry.Registry[sourceprovider.Provider]

	transportsMu sync.Mutex
	transports   []*transport.Container

	inFlight     sync.WaitGroup
	drainTimeout time.Duration
}

// New builds a session in the NEW state with empty registries.
func New() *Session {
	s := &Session{state: StateNew, drainTimeout: 5 * time.Second}
	s.QueryEngines = registry.New[queryengine.QueryEngine](func(name string, qe queryengine.QueryEngine) error {
		return qe.Close(&queryengine.Context{})
	})
	s.SourceProviders = registry.New[sourceprovider.Provider](func(name string, p sourceprovider.Provider) error {
		return p.Close(context.Background())
	})
	s.Capabilities = registry.New[*capability.Capability](nil)
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) transitionTo(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if transitions[s.state] != to {
		return &ErrIllegalTransition{From: s.state, To: to}
	}
	s.state = to
	logging.Info("session", "transitioned to %s", to)
	return nil
}

// RegisterTransport tracks a transport container so Start/Stop can manage
// its lifecycle alongside the named registries.
func (s *Session) RegisterTransport(t *transport.Container) {
	s.transportsMu.Lock()
	defer s.transportsMu.Unlock()
	s.transports = append(s.transports, t)
}

// RegisterCapability validates that every referenced query engine and
// source exists before adding cap to the capability registry.
func (s *Session) RegisterCapability(cap *capability.Capability) error {
	if _, err := s.QueryEngines.Get(cap.QueryEngine); err != nil {
		return fmt.Errorf("session: capability %q references unknown query engine %q: %w", cap.Name, cap.QueryEngine, err)
	}
	for _, src := range cap.Sources {
		if _, err := s.SourceProviders.Get(src); err != nil {
			return fmt.Errorf("session: capability %q references unknown source %q: %w", cap.Name, src, err)
		}
	}
	return s.Capabilities.Register(cap.Name, cap)
}

// Start moves the session NEW→STARTING→RUNNING. Only RUNNING accepts
// dispatches.
func (s *Session) Start(ctx context.Context) error {
	if err := s.transitionTo(StateStarting); err != nil {
		return err
	}
	return s.transitionTo(StateRunning)
}

// AcceptsDispatch reports whether the session is in a state that allows
// new dispatches to begin.
func (s *Session) AcceptsDispatch() bool {
	return s.State() == StateRunning
}

// BeginDispatch records one in-flight dispatch so Stop's drain phase can
// wait for it. Callers must call the returned func exactly once, however
// the dispatch ends.
func (s *Session) BeginDispatch() func() {
	s.inFlight.Add(1)
	done := false
	return func() {
		if !done {
			done = true
			s.inFlight.Done()
		}
	}
}

// Stop moves RUNNING→STOPPING→STOPPED, draining in-flight work up to
// drainTimeout and then shutting down the child registries in the order
// capabilities → query engines → source providers → transports (the
// reverse of build order, ).
func (s *Session) Stop(ctx context.Context) error {
	if err := s.transitionTo(StateStopping); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(ctx, s.drainTimeout)
	defer cancel()
	drained := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-drainCtx.Done():
		logging.Warn("session", "drain timeout exceeded, stopping with dispatches still in flight")
	}

	s.Capabilities.Shutdown()
	s.QueryEngines.Shutdown()
	s.SourceProviders.Shutdown()

	s.transportsMu.Lock()
	transports := append([]*transport.Container(nil), s.transports...)
	s.transportsMu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, t := range transports {
		t := t
		group.Go(func() error {
			if err := t.Stop(groupCtx); err != nil {
				logging.Warn("session", "transport %s stop failed: %v", t.Name(), err)
			}
			return nil
		})
	}
	_ = group.Wait()

	return s.transitionTo(StateStopped)
}
