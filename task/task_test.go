package task

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpawnJoinValue(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (int, error) { return 42, nil }, WithName("answer"))
	v, err := h.Join()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, Completed, h.State())
	assert.Equal(t, "answer", h.Name())
	assert.NotEmpty(t, h.ID())
}

func TestSpawnDoesNotBlock(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	start := time.Now()
	h := Spawn(func() (struct{}, error) {
		<-release
		return struct{}{}, nil
	})
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	select {
	case <-h.Done():
		t.Fatal("task finished before it was released")
	default:
	}
	close(release)
	_, err := h.Join()
	require.NoError(t, err)
}

func TestJoinIdempotent(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (string, error) { return "", errors.New("boom") })
	_, err1 := h.Join()
	_, err2 := h.Join()
	require.Error(t, err1)
	assert.Same(t, err1, err2)
}

func TestReturnedErrorIsAttributed(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("upstream error")
	h := Spawn(func() (int, error) { return 7, sentinel }, WithName("fetch"))
	v, err := h.Join()
	assert.Equal(t, 7, v)
	require.ErrorIs(t, err, sentinel)

	var te *TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "fetch", te.Task.Name)
	assert.Equal(t, Completed, h.State())
	assert.False(t, IsPanic(err))
	assert.Same(t, sentinel, CauseOf(err))
}

func TestPanicIsIsolated(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (int, error) {
		panic("panic-value")
	})
	_, err := h.Join()
	require.Error(t, err)
	assert.True(t, IsPanic(err))
	assert.Equal(t, Panicked, h.State())

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "panic-value", pe.Value)
	assert.Contains(t, pe.Stack, "goroutine")
}

func TestPanicWithErrorUnwraps(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("bad state")
	h := Spawn(func() (int, error) { panic(sentinel) })
	_, err := h.Join()
	assert.ErrorIs(t, err, sentinel)
}

func TestGoexitIsFailure(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (int, error) {
		runtime.Goexit()
		return 1, nil
	})
	_, err := h.Join()
	require.ErrorIs(t, err, ErrGoexit)
	assert.Equal(t, Panicked, h.State())
}

func TestTerminalStateIsStable(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (int, error) { panic("x") })
	_, _ = h.Join()
	for i := 0; i < 3; i++ {
		assert.Equal(t, Panicked, h.State())
		assert.True(t, h.State().Terminal())
	}
}

func TestJoinVisibility(t *testing.T) {
	t.Parallel()
	results := make([]int, 100)
	h := SpawnWith(results, func(dst []int) (struct{}, error) {
		for i := range dst {
			dst[i] = i * i
		}
		return struct{}{}, nil
	})
	_, err := h.Join()
	require.NoError(t, err)
	for i, v := range results {
		require.Equal(t, i*i, v)
	}
}

func TestSpawnWithCopiesValue(t *testing.T) {
	t.Parallel()
	type point struct{ X, Y int }
	p := point{1, 2}
	h := SpawnWith(p, func(q point) (point, error) {
		q.X = 100
		return q, nil
	})
	got, err := h.Join()
	require.NoError(t, err)
	assert.Equal(t, point{100, 2}, got)
	assert.Equal(t, point{1, 2}, p)
}

func TestSpawnOwnedMovesBox(t *testing.T) {
	t.Parallel()
	box := NewBox([]int{1, 2, 3})
	h := SpawnOwned(box, func(v []int) (int, error) {
		sum := 0
		for _, x := range v {
			sum += x
		}
		return sum, nil
	})
	assert.True(t, box.Moved())
	_, err := box.Take()
	require.ErrorIs(t, err, ErrMoved)

	sum, err := h.Join()
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

func TestSpawnOwnedFromMovedBox(t *testing.T) {
	t.Parallel()
	box := NewBox("payload")
	_, err := box.Take()
	require.NoError(t, err)

	var ran atomic.Bool
	h := SpawnOwned(box, func(string) (int, error) {
		ran.Store(true)
		return 0, nil
	})
	_, err = h.Join()
	require.ErrorIs(t, err, ErrMoved)
	assert.False(t, ran.Load())
}

func TestDetachedTaskRunsToCompletion(t *testing.T) {
	t.Parallel()
	finished := make(chan struct{})
	Spawn(func() (struct{}, error) {
		time.Sleep(10 * time.Millisecond)
		close(finished)
		return struct{}{}, nil
	})
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("detached task did not finish")
	}
}

func TestNilFunction(t *testing.T) {
	t.Parallel()
	_, err := Spawn[int](nil).Join()
	assert.Error(t, err)
}

func TestJoinAll(t *testing.T) {
	t.Parallel()
	var hs []*Handle[int]
	for i := 0; i < 5; i++ {
		hs = append(hs, SpawnWith(i, func(n int) (int, error) {
			if n == 3 {
				return 0, errors.New("three")
			}
			return n * 10, nil
		}))
	}
	vals, err := JoinAll(hs...)
	require.Error(t, err)
	assert.Equal(t, []int{0, 10, 20, 0, 40}, vals)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 1)
}

type countObserver struct {
	started  atomic.Int64
	finished atomic.Int64
	panicked atomic.Int64
	joined   atomic.Int64
}

func (o *countObserver) TaskStarted(Info) { o.started.Add(1) }
func (o *countObserver) TaskFinished(_ Info, _ time.Duration, _ error, panicked bool) {
	o.finished.Add(1)
	if panicked {
		o.panicked.Add(1)
	}
}
func (o *countObserver) TaskJoined(Info, time.Duration) { o.joined.Add(1) }

func TestObserverHooks(t *testing.T) {
	t.Parallel()
	a, b := &countObserver{}, &countObserver{}
	obs := MultiObserver(a, nil, b)
	h1 := Spawn(func() (int, error) { return 1, nil }, WithObserver(obs))
	h2 := Spawn(func() (int, error) { panic("p") }, WithObserver(obs))
	_, _ = h1.Join()
	_, _ = h2.Join()
	for _, o := range []*countObserver{a, b} {
		assert.EqualValues(t, 2, o.started.Load())
		assert.EqualValues(t, 2, o.finished.Load())
		assert.EqualValues(t, 1, o.panicked.Load())
		assert.EqualValues(t, 2, o.joined.Load())
	}
	assert.Nil(t, MultiObserver(nil))
}

type panickingObserver struct {
	onStart  bool
	onFinish bool
}

func (o panickingObserver) TaskStarted(Info) {
	if o.onStart {
		panic("observer failed on start")
	}
}

func (o panickingObserver) TaskFinished(Info, time.Duration, error, bool) {
	if o.onFinish {
		panic("observer failed on finish")
	}
}

func (panickingObserver) TaskJoined(Info, time.Duration) {}

func TestPanickingFinishObserverStillCompletesJoin(t *testing.T) {
	t.Parallel()
	h := Spawn(func() (int, error) { return 3, nil },
		WithObserver(panickingObserver{onFinish: true}))
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done was never closed")
	}
	v, err := h.Join()
	assert.Equal(t, 3, v)
	require.Error(t, err)
	assert.True(t, IsPanic(err))
	assert.Equal(t, Panicked, h.State())

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "observer failed on finish", pe.Value)
}

func TestPanickingFinishObserverKeepsTaskError(t *testing.T) {
	t.Parallel()
	sentinel := errors.New("work failed")
	h := Spawn(func() (int, error) { return 0, sentinel },
		WithObserver(panickingObserver{onFinish: true}))
	_, err := h.Join()
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, IsPanic(err))
}

func TestPanickingStartObserverFailsTask(t *testing.T) {
	t.Parallel()
	var ran atomic.Bool
	h := Spawn(func() (int, error) {
		ran.Store(true)
		return 1, nil
	}, WithObserver(panickingObserver{onStart: true}))
	_, err := h.Join()
	require.Error(t, err)
	assert.True(t, IsPanic(err))
	assert.False(t, ran.Load())
	assert.Equal(t, Panicked, h.State())
}
