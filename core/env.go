package core

import (
	"context"
	"sync"
)

// Environment supplies the latent state at each real timestep and consumes
// the planner's action. Step returns the next state, the realized reward and
// whether the episode terminated.
type Environment interface {
	Reset() (LatentState, error)
	Step(Action, *StepContext) (LatentState, float64, bool, error)
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment with the given instance number.
	NewEnvironment(int) Environment
}

type EpisodeContext struct {
	Context       context.Context
	Episode       int
	Horizon       int
	Run           int
	StartTimeStep int

	Trace *Trace

	mu      sync.Mutex
	err     error
	timeout bool
	doneCh  chan struct{}
	once    sync.Once
}

func NewEpisodeContext(ctx context.Context) *EpisodeContext {
	return &EpisodeContext{
		Context: ctx,
		doneCh:  make(chan struct{}),
	}
}

func (e *EpisodeContext) Error(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.once.Do(func() { close(e.doneCh) })
}

// Timeout marks the episode as timed out. The episode goroutine may still be
// unwinding, so this does not signal Done.
func (e *EpisodeContext) Timeout() {
	e.mu.Lock()
	e.timeout = true
	e.mu.Unlock()
}

func (e *EpisodeContext) Finish() {
	e.once.Do(func() { close(e.doneCh) })
}

func (e *EpisodeContext) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *EpisodeContext) IsError() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err != nil
}

func (e *EpisodeContext) IsTimeout() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeout
}

func (e *EpisodeContext) Done() <-chan struct{} {
	return e.doneCh
}

type StepContext struct {
	Step int
	*EpisodeContext
}
