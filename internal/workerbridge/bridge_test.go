package workerbridge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vixengraph/rendergraph/internal/eventbus"
)

type compileResult struct {
	eventbus.BaseMessage
	SPIRV   []uint32
	Success bool
	Err     string
}

func (r *compileResult) SetSender(id uint64) { r.Sender = id }
func (r *compileResult) SetFailure(err string) {
	r.Success = false
	r.Err = err
}

func TestSubmitWorkPublishesResult(t *testing.T) {
	bus := eventbus.New(nil)
	bridge := New[*compileResult](bus)
	defer bridge.Close()

	received := make(chan *compileResult, 1)
	bus.SubscribeAll(func(m eventbus.Message) bool {
		received <- m.(*compileResult)
		return true
	})

	bridge.SubmitWork(7, func() (*compileResult, error) {
		return &compileResult{SPIRV: []uint32{1, 2, 3}, Success: true}, nil
	})

	require.Eventually(t, func() bool {
		bus.ProcessMessages()
		select {
		case r := <-received:
			require.Equal(t, uint64(7), r.SenderID())
			require.True(t, r.Success)
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSubmitWorkErrorBecomesFailure(t *testing.T) {
	bus := eventbus.New(nil)
	bridge := New[*compileResult](bus)
	defer bridge.Close()

	received := make(chan *compileResult, 1)
	bus.SubscribeAll(func(m eventbus.Message) bool {
		received <- m.(*compileResult)
		return true
	})

	bridge.SubmitWork(1, func() (*compileResult, error) {
		return &compileResult{Success: true}, errors.New("glsl compile failed")
	})

	require.Eventually(t, func() bool {
		bus.ProcessMessages()
		select {
		case r := <-received:
			require.Equal(t, uint64(1), r.SenderID())
			require.False(t, r.Success)
			require.Equal(t, "glsl compile failed", r.Err)
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestCancelSkipsUnstartedWork(t *testing.T) {
	bus := eventbus.New(nil)
	bridge := New[*compileResult](bus)
	defer bridge.Close()

	ran := false
	id := bridge.SubmitWork(1, func() (*compileResult, error) {
		ran = true
		return &compileResult{Success: true}, nil
	})
	bridge.Cancel(id)

	time.Sleep(20 * time.Millisecond)
	require.False(t, ran)
}
