package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errLocked = errors.New("database is locked")

type flakyStore struct {
	MemoryStore
	failures int
	calls    int
}

func (f *flakyStore) Init() error {
	f.calls++
	if f.calls <= f.failures {
		return errLocked
	}
	return nil
}

func TestInitWithRetry(t *testing.T) {
	store := &flakyStore{failures: 2}

	assert.NoError(t, InitWithRetry(context.Background(), store, 5*time.Second))
	assert.Equal(t, 3, store.calls)
}

func TestInitWithRetry_GivesUp(t *testing.T) {
	store := &flakyStore{failures: 1 << 30}

	err := InitWithRetry(context.Background(), store, 300*time.Millisecond)
	assert.ErrorIs(t, err, errLocked)
	assert.Greater(t, store.calls, 1)
}

func TestInitWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &flakyStore{failures: 1 << 30}
	err := InitWithRetry(ctx, store, time.Minute)
	assert.Error(t, err)
	assert.LessOrEqual(t, store.calls, 1)
}
