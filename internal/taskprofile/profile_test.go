package taskprofile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPressureValveClamp(t *testing.T) {
	p := NewSimpleProfile("blur", "postfx", -3, 3)
	for i := 0; i < 5; i++ {
		p.Increase()
	}
	require.Equal(t, int32(3), p.WorkUnits())
	for i := 0; i < 10; i++ {
		p.Decrease()
	}
	require.Equal(t, int32(-3), p.WorkUnits())
}

func TestSimpleProfileLinearEstimate(t *testing.T) {
	p := NewSimpleProfile("blur", "postfx", -3, 3)
	p.RecordMeasurement(1_000_000)
	p.ProcessPendingSamples()
	require.Equal(t, uint64(1_000_000), p.GetEstimatedCostNs())
}

func TestResolutionProfileMeasuredLevelsAndQuadraticExtrapolation(t *testing.T) {
	table := [NumResolutionLevels]uint32{128, 256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 4096}
	p := NewResolutionProfile("shadowMap_cascade0", "shadow", table)

	p.SetWorkUnits(0)
	p.RecordMeasurement(1_000_000)
	p.ProcessPendingSamples()

	p.SetWorkUnits(2)
	p.RecordMeasurement(3_500_000)
	p.ProcessPendingSamples()

	require.Equal(t, uint64(1_000_000), p.GetMeasuredCostAtLevel(0))
	require.InDelta(t, 3_500_000, float64(p.GetMeasuredCostAtLevel(2)), 1)

	p.SetWorkUnits(5)
	estimate := p.GetEstimatedCostNs()
	require.Greater(t, estimate, uint64(1_000_000))
}

func TestProfileSaveLoadRoundTrip(t *testing.T) {
	table := [NumResolutionLevels]uint32{128, 256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 4096}
	p := NewResolutionProfile("shadowMap_cascade0", "shadow", table)
	p.SetWorkUnits(2)
	p.RecordMeasurement(3_500_000)
	p.ProcessPendingSamples()

	saved := p.SaveState()
	loaded := NewResolutionProfileDefault()
	loaded.LoadState(saved)

	require.Equal(t, p.Name(), loaded.Name())
	require.Equal(t, p.WorkUnits(), loaded.WorkUnits())
	require.Equal(t, p.GetMeasuredCostAtLevel(2), loaded.GetMeasuredCostAtLevel(2))
}

func TestRegistryLoadFromJSONSkipsUnknownType(t *testing.T) {
	reg := NewRegistry(nil)
	data := []byte(`{"version":1,"profiles":[
		{"typeName":"SimpleTaskProfile","name":"a","category":"c","workUnits":0},
		{"typeName":"NoSuchProfile","name":"b","category":"c"}
	]}`)
	require.NoError(t, reg.LoadFromJSON(data))
	_, ok := reg.Get("a")
	require.True(t, ok)
	_, ok = reg.Get("b")
	require.False(t, ok)
}

func TestRegistrySaveLoadRoundTripViaJSON(t *testing.T) {
	reg := NewRegistry(nil)
	p := NewSimpleProfile("cull", "geometry", -4, 4)
	p.RecordMeasurement(500_000)
	p.ProcessPendingSamples()
	reg.Put("cull", p)

	data, err := reg.SaveToJSON()
	require.NoError(t, err)

	reg2 := NewRegistry(nil)
	require.NoError(t, reg2.LoadFromJSON(data))
	loaded, ok := reg2.Get("cull")
	require.True(t, ok)
	require.Equal(t, uint64(500_000), loaded.GetEstimatedCostNs())
}
