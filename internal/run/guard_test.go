package run

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Basics(t *testing.T) {
	store := NewStore()
	store.Set("b", 2)
	store.Set("a", 1)

	v, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, []string{"a", "b"}, store.Names())

	store.Delete("a")
	_, ok = store.Get("a")
	assert.False(t, ok)

	// Deleting an absent name is a no-op.
	store.Delete("never-set")
}

func TestGuard_CleansIntroducedState(t *testing.T) {
	store := NewStore()
	store.Set("preexisting", "stays")

	guard := NewGuard(store, false)
	status, err := guard.Run(func() (Status, error) {
		store.Set("provisioned-vm", "vm-1")
		store.Set("lease", 42)
		return StatusSuccess, nil
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	// Introduced names are gone, pre-existing and status names remain.
	assert.Equal(t, []string{StatusKey, "preexisting"}, store.Names())

	final, ok := store.Get(StatusKey)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, final)
}

func TestGuard_CleansOnFailure(t *testing.T) {
	store := NewStore()
	guard := NewGuard(store, false)

	boom := errors.New("phase exploded")
	status, err := guard.Run(func() (Status, error) {
		store.Set("half-provisioned", true)
		return StatusFailure, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailure, status)
	assert.Equal(t, []string{StatusKey}, store.Names())
}

func TestGuard_RecoversPanicAsRunError(t *testing.T) {
	store := NewStore()
	guard := NewGuard(store, false)

	status, err := guard.Run(func() (Status, error) {
		store.Set("about-to-leak", 1)
		panic("unexpected fault")
	})

	assert.Equal(t, StatusFailure, status)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Contains(t, runErr.Error(), "unexpected fault")
	assert.NotEmpty(t, runErr.File, "panic site should be recorded")

	assert.Equal(t, []string{StatusKey}, store.Names())
}

func TestGuard_IgnoreFailuresForcesSuccess(t *testing.T) {
	store := NewStore()
	guard := NewGuard(store, true)

	status, err := guard.Run(func() (Status, error) {
		return StatusFailure, errors.New("three cases failed")
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	// The true status is still what the store records.
	final, ok := store.Get(StatusKey)
	require.True(t, ok)
	assert.Equal(t, StatusFailure, final)
}

func TestGuard_IgnoreFailuresLeavesSuccessAlone(t *testing.T) {
	guard := NewGuard(NewStore(), true)

	status, err := guard.Run(func() (Status, error) {
		return StatusSuccess, nil
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)
}

func TestGuard_NilStoreUsesDefault(t *testing.T) {
	guard := NewGuard(nil, false)

	status, err := guard.Run(func() (Status, error) {
		DefaultStore.Set("transient", true)
		return StatusSuccess, nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, status)

	_, ok := DefaultStore.Get("transient")
	assert.False(t, ok, "guard should clean the default store too")
	DefaultStore.Delete(StatusKey)
}

func TestNewRunError_RecordsCallSite(t *testing.T) {
	err := NewRunError(errors.New("wrapped"))
	assert.Contains(t, err.Error(), "guard_test.go")
	assert.ErrorContains(t, err, "wrapped")
}
