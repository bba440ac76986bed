package taskprofile

func loadCommon(b *Base, j map[string]any) {
	if v, ok := j["name"].(string); ok {
		b.name_ = v
	}
	if v, ok := j["category"].(string); ok {
		b.category_ = v
	}
	if v, ok := j["workUnits"]; ok {
		b.workUnits_ = int32(toInt64(v))
	}
	if v, ok := j["minWorkUnits"]; ok {
		b.minWorkUnits_ = int32(toInt64(v))
	}
	if v, ok := j["maxWorkUnits"]; ok {
		b.maxWorkUnits_ = int32(toInt64(v))
	}
	if v, ok := j["priority"]; ok {
		b.priority_ = uint8(toUint64(v))
	}
	if v, ok := j["workUnitType"]; ok {
		b.workUnitType_ = WorkUnitType(toInt64(v))
	}
	if v, ok := j["sampleCount"]; ok {
		b.sampleCount_ = uint32(toUint64(v))
	}
	if v, ok := j["lastMeasuredCostNs"]; ok {
		b.lastMeasuredCostNs_ = toUint64(v)
	}
	if v, ok := j["peakMeasuredCostNs"]; ok {
		b.peakMeasuredCostNs_ = toUint64(v)
	}
	if v, ok := j["isCalibrated"].(bool); ok {
		b.isCalibrated_ = v
	}
}

// toUint64/toInt64 accept the numeric types produced by either a live
// SaveState map or a map decoded from JSON via encoding/json (where
// every number arrives as float64).
func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case uint8:
		return uint64(n)
	case int:
		return uint64(n)
	case int32:
		return uint64(n)
	case int64:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
