package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGetAll(t *testing.T) {
	r := New[int](nil)
	names := []string{"a", "b", "c"}
	for i, n := range names {
		require.NoError(t, r.Register(n, i))
	}

	all := r.All()
	require.Len(t, all, len(names))
	for i, n := range names {
		v, err := r.Get(n)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.ElementsMatch(t, names, r.Names())
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := New[string](nil)
	require.NoError(t, r.Register("x", "first"))
	err := r.Register("x", "second")
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
}

func TestGetMissingFails(t *testing.T) {
	r := New[string](nil)
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, ok := r.Find("missing")
	assert.False(t, ok)
}

func TestUnregisterDoesNotInvokeShutdownHandler(t *testing.T) {
	var invoked bool
	r := New[string](func(name string, instance string) error {
		invoked = true
		return nil
	})
	require.NoError(t, r.Register("x", "v"))
	removed := r.Unregister("x")
	assert.True(t, removed)
	assert.False(t, invoked)

	removedAgain := r.Unregister("x")
	assert.False(t, removedAgain)
}

func TestShutdownIsIdempotentAndInvokesHandlers(t *testing.T) {
	var mu sync.Mutex
	shutdownNames := map[string]bool{}
	r := New[string](func(name string, instance string) error {
		mu.Lock()
		defer mu.Unlock()
		shutdownNames[name] = true
		return nil
	})
	require.NoError(t, r.Register("a", "1"))
	require.NoError(t, r.Register("b", "2"))

	r.Shutdown()
	assert.True(t, r.IsShutdown())
	assert.Len(t, shutdownNames, 2)

	// Second call is a no-op, not a re-invocation.
	r.Shutdown()
	assert.Len(t, shutdownNames, 2)

	_, err := r.Get("a")
	require.Error(t, err)

	err = r.Register("c", "3")
	require.Error(t, err)
}

func TestShutdownHandlerPanicDoesNotAbortRemainingShutdown(t *testing.T) {
	var calledB bool
	r := New[string](func(name string, instance string) error {
		if name == "a" {
			panic("boom")
		}
		calledB = true
		return nil
	})
	require.NoError(t, r.Register("a", "1"))
	require.NoError(t, r.Register("b", "2"))

	assert.NotPanics(t, func() { r.Shutdown() })
	assert.True(t, calledB)
}

func TestConcurrentRegisterIsSafe(t *testing.T) {
	r := New[int](nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Register(string(rune('a'+i%26))+string(rune(i)), i)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, len(r.All()), 100)
}
