package zerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := New(KindIOUnavailable, "repository.append", base).WithPath("P.repo.3")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "io_unavailable")
	assert.Contains(t, err.Error(), "P.repo.3")
	assert.ErrorIs(t, err, base)
}

func TestIsKind(t *testing.T) {
	err := New(KindNotFound, "iobtree.find", errors.New("absent")).WithTerm("aardvark")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindFormatInvalid))

	wrapped := fmt.Errorf("planner: %w", err)
	assert.True(t, IsKind(wrapped, KindNotFound))
}

func TestSentinelIs(t *testing.T) {
	err := New(KindConflictingState, "fdset.create", errors.New("exists"))
	assert.True(t, errors.Is(err, Sentinel(KindConflictingState)))
	assert.False(t, errors.Is(err, Sentinel(KindUserCanceled)))
}
