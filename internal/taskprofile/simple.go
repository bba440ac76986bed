package taskprofile

import "fmt"

// SimpleProfile models cost linearly: baseline + workUnits*perUnit, both
// learned via EMA(α=0.1) from measurements, ported from
// SimpleTaskProfile.h.
type SimpleProfile struct {
	Base

	baselineCostNs_ uint64
	perUnitCostNs_  int64 // signed: cost can decrease as workUnits increases for some tasks
	haveBaseline_   bool
	havePerUnit_    bool
}

// NewSimpleProfile constructs a profile with the given identity and
// work-unit range.
func NewSimpleProfile(name, category string, minUnits, maxUnits int32) *SimpleProfile {
	p := &SimpleProfile{}
	p.InitBase(name, category, minUnits, maxUnits)
	p.workUnitType_ = WorkUnitBatchSize
	return p
}

func (p *SimpleProfile) GetTypeName() string { return "SimpleTaskProfile" }

func (p *SimpleProfile) Increase() {
	p.setWorkUnitsClamped(p.workUnits_+1, nil)
}

func (p *SimpleProfile) Decrease() {
	p.setWorkUnitsClamped(p.workUnits_-1, nil)
}

func (p *SimpleProfile) SetWorkUnits(v int32) {
	p.setWorkUnitsClamped(v, nil)
}

func (p *SimpleProfile) GetEstimatedCostNs() uint64 {
	if !p.haveBaseline_ {
		return 0
	}
	estimate := int64(p.baselineCostNs_) + int64(p.workUnits_)*p.perUnitCostNs_
	if estimate < 0 {
		return 0
	}
	return uint64(estimate)
}

func (p *SimpleProfile) RecordMeasurement(ns uint64) {
	p.recordMeasurementCommon(ns, func(sample uint64) { p.applySample(sample) })
}

func (p *SimpleProfile) applySample(ns uint64) {
	if p.workUnits_ == 0 {
		if !p.haveBaseline_ {
			p.baselineCostNs_ = ns
			p.haveBaseline_ = true
		} else {
			p.baselineCostNs_ = ema(p.baselineCostNs_, ns)
		}
		return
	}

	if !p.haveBaseline_ {
		// Can't derive per-unit cost without a baseline yet; treat this
		// sample as a provisional baseline so estimates aren't zero.
		p.baselineCostNs_ = ns
		p.haveBaseline_ = true
		return
	}

	impliedPerUnit := (int64(ns) - int64(p.baselineCostNs_)) / int64(p.workUnits_)
	if !p.havePerUnit_ {
		p.perUnitCostNs_ = impliedPerUnit
		p.havePerUnit_ = true
	} else {
		p.perUnitCostNs_ = int64(float64(p.perUnitCostNs_)*0.9 + float64(impliedPerUnit)*0.1)
	}
}

func ema(current, sample uint64) uint64 {
	return uint64(float64(current)*0.9 + float64(sample)*0.1)
}

func (p *SimpleProfile) ProcessPendingSamples() {
	p.ProcessSamples(func(ns uint64) { p.applySample(ns) })
}

func (p *SimpleProfile) GetStateDescription() string {
	return fmt.Sprintf("%s: workUnits=%+d est=%.2fms", p.name_, p.workUnits_, float64(p.GetEstimatedCostNs())/1e6)
}

func (p *SimpleProfile) ResetCalibration() {
	p.Base.ResetCalibration()
	p.baselineCostNs_ = 0
	p.perUnitCostNs_ = 0
	p.haveBaseline_ = false
	p.havePerUnit_ = false
}

func (p *SimpleProfile) SaveState() map[string]any {
	return map[string]any{
		"typeName":           p.GetTypeName(),
		"name":                p.name_,
		"category":            p.category_,
		"workUnits":           p.workUnits_,
		"minWorkUnits":        p.minWorkUnits_,
		"maxWorkUnits":        p.maxWorkUnits_,
		"priority":            p.priority_,
		"workUnitType":        int(p.workUnitType_),
		"sampleCount":         p.sampleCount_,
		"lastMeasuredCostNs":  p.lastMeasuredCostNs_,
		"peakMeasuredCostNs":  p.peakMeasuredCostNs_,
		"isCalibrated":        p.isCalibrated_,
		"baselineCostNs":      p.baselineCostNs_,
		"perUnitCostNs":       p.perUnitCostNs_,
		"haveBaseline":        p.haveBaseline_,
		"havePerUnit":         p.havePerUnit_,
	}
}

func (p *SimpleProfile) LoadState(j map[string]any) {
	loadCommon(&p.Base, j)
	if v, ok := j["baselineCostNs"]; ok {
		p.baselineCostNs_ = toUint64(v)
		p.haveBaseline_ = true
	}
	if v, ok := j["perUnitCostNs"]; ok {
		p.perUnitCostNs_ = toInt64(v)
		p.havePerUnit_ = true
	}
	if v, ok := j["haveBaseline"].(bool); ok {
		p.haveBaseline_ = v
	}
	if v, ok := j["havePerUnit"].(bool); ok {
		p.havePerUnit_ = v
	}
}
