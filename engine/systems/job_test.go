package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/anima-baker/engine/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidatesArguments(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)

	var mu sync.Mutex
	results := map[int]int{}
	var failures, done atomic.Int32

	for i := 0; i < 20; i++ {
		js.Submit(metadata.JobTask{
			InputParams: i,
			OnStart: func(params interface{}, out chan<- interface{}) error {
				n := params.(int)
				if n%5 == 0 {
					return errors.New("multiple of five")
				}
				out <- n * n
				return nil
			},
			OnComplete: func(result interface{}) {
				n := result.(int)
				mu.Lock()
				results[n] = n
				mu.Unlock()
			},
			OnFailure: func(result interface{}) {
				assert.Error(t, result.(error))
				failures.Add(1)
			},
			OnCompletionCallback: func() { done.Add(1) },
		})
	}
	require.NoError(t, js.Shutdown())

	assert.Equal(t, int32(20), done.Load())
	assert.Equal(t, int32(4), failures.Load())
	assert.Len(t, results, 16)
	assert.Contains(t, results, 49)
}

func TestJobSystemShutdownTwice(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
}
