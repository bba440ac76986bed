// Package loop implements named fixed/variable timestep loops with
// catch-up policy (C7), ported from Core/LoopManager.{h,cpp}. Loop
// references are pointer-stable for the manager's lifetime (P5).
package loop

import "sync"

// CatchupMode controls how a fixed-timestep loop behaves when the
// accumulator has more than one step's worth of debt.
type CatchupMode int

const (
	FireAndForget CatchupMode = iota
	SingleCorrectiveStep
	MultipleSteps
)

// Config is a loop's static configuration.
type Config struct {
	Name           string
	FixedTimestep  float64 // 0 means variable-rate
	CatchupMode    CatchupMode
	MaxCatchupTime float64

	// AllowMultipleStepsPerUpdate gates the optional "drain the
	// accumulator within one UpdateLoops call" behavior for
	// MultipleSteps loops; off by default, matching the source's
	// preserved per-call-single-step behavior (spec §9 open question).
	AllowMultipleStepsPerUpdate bool
}

// Reference is the stable, address-fixed per-frame state of one loop.
type Reference struct {
	LoopID                 ID
	ShouldExecuteThisFrame bool
	DeltaTime              float64
	StepCount              uint64
	LastExecutedFrame      uint64
	LastExecutionTimeMs    float64
	CatchupMode            CatchupMode
}

// ID identifies a registered loop.
type ID uint32

type loopState struct {
	config      Config
	accumulator float64
	reference   Reference
}

// Manager owns every registered loop. GetLoopReference returns a pointer
// into a slice of pointers so growth never relocates an existing
// *Reference (Design Notes §9's pointer-stability open question,
// SPEC_FULL §3).
type Manager struct {
	mu               sync.Mutex
	states           []*loopState
	nextID           ID
	currentFrameIdx  uint64
}

// New returns an empty Manager.
func New() *Manager { return &Manager{} }

// RegisterLoop adds a new loop and returns its ID.
func (m *Manager) RegisterLoop(cfg Config) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++

	s := &loopState{config: cfg}
	s.reference = Reference{LoopID: id, CatchupMode: cfg.CatchupMode}
	m.states = append(m.states, s)
	return id
}

// GetLoopReference returns a stable pointer to loopID's per-frame state,
// or nil if no such loop was registered.
func (m *Manager) GetLoopReference(loopID ID) *Reference {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.states {
		if s.reference.LoopID == loopID {
			return &s.reference
		}
	}
	return nil
}

// SetCurrentFrame records the frame index stamped into
// LastExecutedFrame when a loop fires.
func (m *Manager) SetCurrentFrame(frameIndex uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentFrameIdx = frameIndex
}

// UpdateLoops advances every registered loop by frameTime seconds.
func (m *Manager) UpdateLoops(frameTime float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frameTime < 0.001 {
		frameTime = 0.001
	}

	for _, s := range m.states {
		m.updateOne(s, frameTime)
	}
}

func (m *Manager) updateOne(s *loopState, frameTime float64) {
	clamped := frameTime
	if s.config.MaxCatchupTime > 0 && clamped > s.config.MaxCatchupTime {
		clamped = s.config.MaxCatchupTime
	}

	if s.config.FixedTimestep == 0.0 {
		s.reference.ShouldExecuteThisFrame = true
		s.reference.DeltaTime = clamped
		s.reference.LastExecutedFrame = m.currentFrameIdx
		return
	}

	s.accumulator += clamped
	step := s.config.FixedTimestep

	switch s.config.CatchupMode {
	case FireAndForget:
		if s.accumulator >= step {
			s.reference.ShouldExecuteThisFrame = true
			s.reference.DeltaTime = s.accumulator
			s.reference.StepCount++
			s.reference.LastExecutedFrame = m.currentFrameIdx
			s.accumulator = 0.0
		} else {
			s.reference.ShouldExecuteThisFrame = false
		}

	case SingleCorrectiveStep:
		if s.accumulator >= step {
			s.reference.ShouldExecuteThisFrame = true
			s.reference.DeltaTime = step
			s.reference.StepCount++
			s.reference.LastExecutedFrame = m.currentFrameIdx
			s.accumulator -= step
		} else {
			s.reference.ShouldExecuteThisFrame = false
		}

	case MultipleSteps:
		if s.accumulator >= step {
			s.reference.ShouldExecuteThisFrame = true
			s.reference.DeltaTime = step
			s.reference.StepCount++
			s.reference.LastExecutedFrame = m.currentFrameIdx
			s.accumulator -= step

			if s.config.AllowMultipleStepsPerUpdate {
				for s.accumulator >= step {
					s.reference.StepCount++
					s.accumulator -= step
				}
			}
		} else {
			s.reference.ShouldExecuteThisFrame = false
		}
	}
}

// Debt reports how much accumulated time remains above one step for
// loopID, useful for SingleCorrectiveStep diagnostics.
func (m *Manager) Debt(loopID ID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.states {
		if s.reference.LoopID == loopID {
			if s.config.FixedTimestep == 0 {
				return 0
			}
			debt := s.accumulator - s.config.FixedTimestep
			if debt < 0 {
				return 0
			}
			return debt
		}
	}
	return 0
}
