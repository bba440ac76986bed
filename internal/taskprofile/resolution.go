package taskprofile

import "fmt"

// NumResolutionLevels is the fixed table size: workUnits in [-5,+5]
// indexed by workUnits+5.
const NumResolutionLevels = 11

// ResolutionProfile maps work_units to a resolution via a lookup table
// and models cost quadratically in the resolution, ported field-for-
// field from ResolutionTaskProfile.h.
type ResolutionProfile struct {
	Base

	resolutions_         [NumResolutionLevels]uint32
	measuredCostsPerLevel_ [NumResolutionLevels]uint64

	currentResolution_  uint32
	baselineResolution_ uint32
	baselineCostNs_     uint64
}

// NewResolutionProfile constructs a profile with the given resolution
// table (indexed by workUnits+5, must have NumResolutionLevels entries).
func NewResolutionProfile(name, category string, resolutions [NumResolutionLevels]uint32) *ResolutionProfile {
	p := &ResolutionProfile{resolutions_: resolutions}
	p.InitBase(name, category, -5, 5)
	p.workUnitType_ = WorkUnitResolution
	p.updateCurrentResolution()
	p.baselineResolution_ = p.currentResolution_
	return p
}

// NewResolutionProfileDefault mirrors the header's default constructor
// used for deserialization, with a power-of-2-friendly default table.
func NewResolutionProfileDefault() *ResolutionProfile {
	p := &ResolutionProfile{
		resolutions_: [NumResolutionLevels]uint32{128, 256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 4096},
	}
	p.InitBase("", "", -5, 5)
	p.workUnitType_ = WorkUnitResolution
	p.updateCurrentResolution()
	return p
}

func (p *ResolutionProfile) GetTypeName() string { return "ResolutionTaskProfile" }

func (p *ResolutionProfile) updateCurrentResolution() {
	p.currentResolution_ = p.resolutions_[p.workUnits_+5]
}

func (p *ResolutionProfile) Increase() {
	p.setWorkUnitsClamped(p.workUnits_+1, func(old, new int32) { p.updateCurrentResolution() })
}

func (p *ResolutionProfile) Decrease() {
	p.setWorkUnitsClamped(p.workUnits_-1, func(old, new int32) { p.updateCurrentResolution() })
}

func (p *ResolutionProfile) SetWorkUnits(v int32) {
	p.setWorkUnitsClamped(v, func(old, new int32) { p.updateCurrentResolution() })
}

func (p *ResolutionProfile) GetResolution() uint32 { return p.currentResolution_ }

func (p *ResolutionProfile) GetResolutionAtLevel(units int32) uint32 {
	return p.resolutions_[clampLevel(units, p.minWorkUnits_, p.maxWorkUnits_)+5]
}

func (p *ResolutionProfile) SetResolutionTable(resolutions [NumResolutionLevels]uint32) {
	p.resolutions_ = resolutions
	p.updateCurrentResolution()
}

func (p *ResolutionProfile) GetMeasuredCostAtLevel(units int32) uint64 {
	return p.measuredCostsPerLevel_[clampLevel(units, p.minWorkUnits_, p.maxWorkUnits_)+5]
}

func (p *ResolutionProfile) GetCalibratedLevelCount() int {
	n := 0
	for _, c := range p.measuredCostsPerLevel_ {
		if c > 0 {
			n++
		}
	}
	return n
}

func clampLevel(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *ResolutionProfile) GetEstimatedCostNs() uint64 {
	index := p.workUnits_ + 5
	if p.measuredCostsPerLevel_[index] > 0 {
		return p.measuredCostsPerLevel_[index]
	}
	if p.baselineCostNs_ == 0 {
		return 0
	}
	scale := float64(p.currentResolution_) * float64(p.currentResolution_) /
		(float64(p.baselineResolution_) * float64(p.baselineResolution_))
	return uint64(float64(p.baselineCostNs_) * scale)
}

func (p *ResolutionProfile) RecordMeasurement(ns uint64) {
	p.recordMeasurementCommon(ns, func(sample uint64) { p.applySample(sample) })
}

func (p *ResolutionProfile) applySample(ns uint64) {
	index := p.workUnits_ + 5
	if p.measuredCostsPerLevel_[index] == 0 {
		p.measuredCostsPerLevel_[index] = ns
	} else {
		p.measuredCostsPerLevel_[index] = ema(p.measuredCostsPerLevel_[index], ns)
	}

	if p.workUnits_ == 0 {
		if p.baselineCostNs_ == 0 {
			p.baselineCostNs_ = ns
			p.baselineResolution_ = p.currentResolution_
		} else {
			p.baselineCostNs_ = ema(p.baselineCostNs_, ns)
		}
	}
}

func (p *ResolutionProfile) ProcessPendingSamples() {
	p.ProcessSamples(func(ns uint64) { p.applySample(ns) })
}

func (p *ResolutionProfile) GetStateDescription() string {
	return fmt.Sprintf("%s: %dx%d (workUnits=%+d, est=%.2fms)",
		p.name_, p.currentResolution_, p.currentResolution_, p.workUnits_, float64(p.GetEstimatedCostNs())/1e6)
}

func (p *ResolutionProfile) ResetCalibration() {
	p.Base.ResetCalibration()
	p.measuredCostsPerLevel_ = [NumResolutionLevels]uint64{}
	p.baselineCostNs_ = 0
	p.baselineResolution_ = p.resolutions_[5]
	p.updateCurrentResolution()
}

func (p *ResolutionProfile) SaveState() map[string]any {
	resolutions := make([]any, NumResolutionLevels)
	costs := make([]any, NumResolutionLevels)
	for i := 0; i < NumResolutionLevels; i++ {
		resolutions[i] = p.resolutions_[i]
		costs[i] = p.measuredCostsPerLevel_[i]
	}
	return map[string]any{
		"typeName":              p.GetTypeName(),
		"name":                  p.name_,
		"category":              p.category_,
		"workUnits":             p.workUnits_,
		"minWorkUnits":          p.minWorkUnits_,
		"maxWorkUnits":          p.maxWorkUnits_,
		"priority":              p.priority_,
		"workUnitType":          int(p.workUnitType_),
		"sampleCount":           p.sampleCount_,
		"lastMeasuredCostNs":    p.lastMeasuredCostNs_,
		"peakMeasuredCostNs":    p.peakMeasuredCostNs_,
		"isCalibrated":          p.isCalibrated_,
		"currentResolution":     p.currentResolution_,
		"baselineResolution":    p.baselineResolution_,
		"baselineCostNs":        p.baselineCostNs_,
		"resolutions":           resolutions,
		"measuredCostsPerLevel": costs,
	}
}

func (p *ResolutionProfile) LoadState(j map[string]any) {
	loadCommon(&p.Base, j)
	if v, ok := j["currentResolution"]; ok {
		p.currentResolution_ = uint32(toUint64(v))
	}
	if v, ok := j["baselineResolution"]; ok {
		p.baselineResolution_ = uint32(toUint64(v))
	}
	if v, ok := j["baselineCostNs"]; ok {
		p.baselineCostNs_ = toUint64(v)
	}
	if arr, ok := j["resolutions"].([]any); ok {
		for i := 0; i < len(arr) && i < NumResolutionLevels; i++ {
			p.resolutions_[i] = uint32(toUint64(arr[i]))
		}
	}
	if arr, ok := j["measuredCostsPerLevel"].([]any); ok {
		for i := 0; i < len(arr) && i < NumResolutionLevels; i++ {
			p.measuredCostsPerLevel_[i] = toUint64(arr[i])
		}
	}
	p.updateCurrentResolution()
}
