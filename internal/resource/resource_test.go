package resource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetScalarThenGetScalarRoundTrips(t *testing.T) {
	r := New(0, TagUndefined, Transient)
	require.NoError(t, SetScalar(r, uint32(42)))
	v, err := GetScalar[uint32](r)
	require.NoError(t, err)
	require.Equal(t, uint32(42), v)
	require.Equal(t, uint64(1), r.Generation)
}

func TestGetScalarWrongGoTypeFails(t *testing.T) {
	r := New(0, TagUndefined, Transient)
	require.NoError(t, SetScalar(r, uint32(42)))
	_, err := GetScalar[string](r)
	require.Error(t, err)
}

func TestSetTagMismatchFails(t *testing.T) {
	r := New(0, TagScalar, Transient)
	err := r.SetBytes([]byte("hello"))
	require.Error(t, err)
}

func TestReadBeforeWriteFails(t *testing.T) {
	r := New(0, TagScalar, Transient)
	_, err := GetScalar[int](r)
	require.Error(t, err)
}

func TestTransientResetClearsWrittenFlag(t *testing.T) {
	r := New(0, TagUndefined, Transient)
	require.NoError(t, SetScalar(r, 1))
	require.True(t, r.IsWritten())
	r.ResetForFrame()
	require.False(t, r.IsWritten())
}

func TestPersistentResetKeepsWrittenFlag(t *testing.T) {
	r := New(0, TagUndefined, Persistent)
	require.NoError(t, SetScalar(r, 1))
	r.ResetForFrame()
	require.True(t, r.IsWritten())
}

func TestArenaIDsStableAcrossGrowth(t *testing.T) {
	a := NewArena(1)
	var ids []ID
	for i := 0; i < 50; i++ {
		ids = append(ids, a.Create(TagScalar, Transient))
	}
	for i, id := range ids {
		require.Equal(t, ID(i), id)
		require.Same(t, a.Get(id), a.Get(id))
	}
}
