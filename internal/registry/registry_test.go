package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehealth/carebot/internal/care"
)

type stubSource struct {
	name string
	id   care.ChatID
	ok   bool
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Lookup(context.Context) (care.ChatID, bool, error) {
	return s.id, s.ok, s.err
}

func TestResolve_UnsetByDefault(t *testing.T) {
	r := New(nil)

	_, ok := r.Resolve(testContext(t))
	assert.False(t, ok)
}

func TestResolve_RuntimeValue(t *testing.T) {
	r := New(nil)
	r.Link(42)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(42), id)
}

func TestResolve_OverrideWinsOverRuntime(t *testing.T) {
	r := New(nil, stubSource{name: "kv", id: 7, ok: true})
	r.Link(42)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(7), id)

	// Runtime tier still holds the linked value underneath.
	rt, linked := r.Runtime()
	require.True(t, linked)
	assert.Equal(t, care.ChatID(42), rt)
}

func TestResolve_SourcePriorityOrder(t *testing.T) {
	r := New(nil,
		stubSource{name: "env", id: 1, ok: true},
		stubSource{name: "kv", id: 2, ok: true},
	)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(1), id)
}

func TestResolve_FailingSourceSkipped(t *testing.T) {
	r := New(nil,
		stubSource{name: "env", err: fmt.Errorf("malformed value")},
		stubSource{name: "kv", id: 9, ok: true},
	)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(9), id)
}

func TestLink_LastWriteWins(t *testing.T) {
	r := New(nil)
	r.Link(1)
	r.Link(2)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(2), id)
}

func TestUnlink_ClearsRuntimeOnly(t *testing.T) {
	r := New(nil, stubSource{name: "env", id: 5, ok: true})
	r.Link(42)
	r.Unlink()

	_, linked := r.Runtime()
	assert.False(t, linked)

	id, ok := r.Resolve(testContext(t))
	require.True(t, ok)
	assert.Equal(t, care.ChatID(5), id)
}

func TestEnvSource(t *testing.T) {
	t.Run("unset means no override", func(t *testing.T) {
		src := EnvSource{Var: "CAREBOT_TEST_RECIPIENT_UNSET"}
		_, ok, err := src.Lookup(testContext(t))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("numeric value", func(t *testing.T) {
		t.Setenv("CAREBOT_TEST_RECIPIENT", "1234")
		src := EnvSource{Var: "CAREBOT_TEST_RECIPIENT"}
		id, ok, err := src.Lookup(testContext(t))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, care.ChatID(1234), id)
	})

	t.Run("garbage value errors", func(t *testing.T) {
		t.Setenv("CAREBOT_TEST_RECIPIENT", "alice")
		src := EnvSource{Var: "CAREBOT_TEST_RECIPIENT"}
		_, _, err := src.Lookup(testContext(t))
		require.Error(t, err)
	})
}

func TestRegistry_ConcurrentLinkResolve(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			r.Link(care.ChatID(n))
		}(i)
		go func() {
			defer wg.Done()
			r.Resolve(context.Background())
		}()
	}
	wg.Wait()

	_, ok := r.Resolve(testContext(t))
	assert.True(t, ok)
}
