// Package taskprofile implements the adaptive per-task cost profile
// system (C11): pluggable cost models with a pressure-valve API and JSON
// persistence, ported field-for-field from
// Core/ITaskProfile.h and its two concrete profiles.
package taskprofile

import (
	"sync"
	"time"
)

// WorkUnitType classifies how a profile's work_units integer should be
// interpreted by the node that owns it.
type WorkUnitType int

const (
	WorkUnitBatchSize WorkUnitType = iota
	WorkUnitResolution
	WorkUnitThreadCount
	WorkUnitIterationLimit
	WorkUnitLODLevel
	WorkUnitCustom
)

const kMaxPendingSamples = 1024

// Base carries the fields common to every concrete profile
// implementation, matching ITaskProfile's protected members.
type Base struct {
	mu sync.Mutex

	name_         string
	category_     string
	priority_     uint8
	workUnitType_ WorkUnitType
	workUnits_    int32
	minWorkUnits_ int32
	maxWorkUnits_ int32

	pending             []uint64
	sampleCount_        uint32
	lastMeasuredCostNs_ uint64
	peakMeasuredCostNs_ uint64
	isCalibrated_       bool

	onChange func(old, new int32)
}

// InitBase sets the identity and range fields a concrete constructor
// must populate before use.
func (b *Base) InitBase(name, category string, minUnits, maxUnits int32) {
	b.name_ = name
	b.category_ = category
	b.minWorkUnits_ = minUnits
	b.maxWorkUnits_ = maxUnits
	b.workUnits_ = 0
	b.priority_ = 128
}

func (b *Base) Name() string     { return b.name_ }
func (b *Base) Category() string { return b.category_ }
func (b *Base) Priority() uint8  { return b.priority_ }
func (b *Base) SetPriority(p uint8) { b.priority_ = p }
func (b *Base) WorkUnitType() WorkUnitType { return b.workUnitType_ }
func (b *Base) WorkUnits() int32 { return b.workUnits_ }
func (b *Base) MinWorkUnits() int32 { return b.minWorkUnits_ }
func (b *Base) MaxWorkUnits() int32 { return b.maxWorkUnits_ }

// SetOnWorkUnitsChange registers a callback the registry's pressure-valve
// operations invoke when SetWorkUnits actually changes the value.
func (b *Base) SetOnWorkUnitsChange(fn func(old, new int32)) { b.onChange = fn }

// SampleCount, LastMeasuredCostNs, PeakMeasuredCostNs, IsCalibrated
// expose common calibration state.
func (b *Base) SampleCount() uint32          { return b.sampleCount_ }
func (b *Base) LastMeasuredCostNs() uint64   { return b.lastMeasuredCostNs_ }
func (b *Base) PeakMeasuredCostNs() uint64   { return b.peakMeasuredCostNs_ }
func (b *Base) IsCalibrated() bool           { return b.isCalibrated_ }

// Pressure reports the current work-unit setting normalized to [-1,1],
// a member present in the original header but dropped from spec.md's
// prose description (SPEC_FULL §4).
func (b *Base) Pressure() float64 {
	if b.workUnits_ >= 0 {
		if b.maxWorkUnits_ == 0 {
			return 0
		}
		return float64(b.workUnits_) / float64(b.maxWorkUnits_)
	}
	if b.minWorkUnits_ == 0 {
		return 0
	}
	return float64(b.workUnits_) / float64(-b.minWorkUnits_)
}

// CanIncrease/CanDecrease report whether the pressure valve has room to
// move; the capacity tracker consults these before calling Increase/Decrease.
func (b *Base) CanIncrease() bool { return b.workUnits_ < b.maxWorkUnits_ }
func (b *Base) CanDecrease() bool { return b.workUnits_ > b.minWorkUnits_ }

// setWorkUnitsClamped is the shared pressure-valve mutator; it clamps to
// [min,max] and invokes onChanged (concrete profile hook) and onChange
// (registry-level callback) only when the value actually moved (P8).
func (b *Base) setWorkUnitsClamped(v int32, onChanged func(old, new int32)) {
	if v > b.maxWorkUnits_ {
		v = b.maxWorkUnits_
	}
	if v < b.minWorkUnits_ {
		v = b.minWorkUnits_
	}
	if v == b.workUnits_ {
		return
	}
	old := b.workUnits_
	b.workUnits_ = v
	if onChanged != nil {
		onChanged(old, v)
	}
	if b.onChange != nil {
		b.onChange(old, v)
	}
}

// recordMeasurementCommon appends one sample, auto-draining when the
// pending count reaches kMaxPendingSamples, and updates the shared
// last/peak stats. Concrete profiles call this from RecordMeasurement
// before applying their type-specific cost model.
func (b *Base) recordMeasurementCommon(ns uint64, drainOne func(ns uint64)) {
	b.mu.Lock()
	b.pending = append(b.pending, ns)
	shouldDrain := len(b.pending) >= kMaxPendingSamples
	b.mu.Unlock()

	if shouldDrain {
		b.ProcessSamples(drainOne)
	}
}

// ProcessSamples drains pending samples into the cost model via
// drainOne, called once per sample, then updates sampleCount/last/peak.
// The orchestrator invokes this explicitly at end-of-frame under no
// external lock (spec §5).
func (b *Base) ProcessSamples(drainOne func(ns uint64)) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ns := range batch {
		drainOne(ns)
		b.sampleCount_++
		b.lastMeasuredCostNs_ = ns
		if ns > b.peakMeasuredCostNs_ {
			b.peakMeasuredCostNs_ = ns
		}
		b.isCalibrated_ = true
	}
}

// ResetCalibration clears every learned/measured stat back to an
// uncalibrated state.
func (b *Base) ResetCalibration() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
	b.sampleCount_ = 0
	b.lastMeasuredCostNs_ = 0
	b.peakMeasuredCostNs_ = 0
	b.isCalibrated_ = false
}

// Profile is the trait object interface every concrete profile
// implements (C11).
type Profile interface {
	GetTypeName() string
	Name() string
	Category() string
	Priority() uint8
	WorkUnits() int32
	MinWorkUnits() int32
	MaxWorkUnits() int32
	Pressure() float64
	CanIncrease() bool
	CanDecrease() bool
	Increase()
	Decrease()
	SetWorkUnits(v int32)
	GetEstimatedCostNs() uint64
	RecordMeasurement(ns uint64)
	ProcessPendingSamples()
	GetStateDescription() string
	ResetCalibration()
	SaveState() map[string]any
	LoadState(map[string]any)
}

// Sampler is the RAII-style scope guard that measures one elapsed
// interval and feeds it to its owning profile when End or Finalize ends
// its scope; Cancel ends it without recording (ITaskProfile::Sampler),
// substituting for the source's
// destructor-based recording (Design Notes §9).
type Sampler struct {
	profile  Profile
	start    time.Time
	done     bool
}

// Sample begins a new measurement scope against p.
func Sample(p Profile) *Sampler {
	return &Sampler{profile: p, start: time.Now()}
}

// Finalize substitutes an externally-measured duration (e.g. a GPU
// timestamp delivered through the query manager) and records it,
// disabling the CPU-measured value this Sampler would otherwise record.
func (s *Sampler) Finalize(ns uint64) {
	if s.done {
		return
	}
	s.done = true
	s.profile.RecordMeasurement(ns)
}

// End records the CPU-measured elapsed time since Sample, unless
// Finalize or Cancel already ended the scope.
func (s *Sampler) End() {
	if s.done {
		return
	}
	s.done = true
	s.profile.RecordMeasurement(uint64(time.Since(s.start).Nanoseconds()))
}

// Cancel ends the scope without recording any measurement.
func (s *Sampler) Cancel() { s.done = true }
