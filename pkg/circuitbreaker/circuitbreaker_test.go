package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New[int](Settings{Name: "test", MaxFailures: 2, OpenTimeout: time.Minute})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.True(t, IsOpen(err))
}

func TestBreaker_IgnoresSuccessfulErrors(t *testing.T) {
	cb := New[int](Settings{
		Name:         "test",
		MaxFailures:  1,
		OpenTimeout:  time.Minute,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, errNotFound) },
	})

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errNotFound })
		require.ErrorIs(t, err, errNotFound)
	}

	v, err := cb.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestIsOpen(t *testing.T) {
	assert.False(t, IsOpen(nil))
	assert.False(t, IsOpen(errors.New("other")))
}
