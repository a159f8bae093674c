package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := fmt.Errorf("commit: %w", Wrap(ErrKindRetryConflict, "put ref", cause))

	assert.True(t, IsRetryConflict(err))
	assert.False(t, IsNotFound(err))
	assert.True(t, errors.Is(err, cause))
}

func TestPlainErrorsAreUnknown(t *testing.T) {
	err := errors.New("boom")
	assert.False(t, IsRetryConflict(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsAlreadyExists(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[not_found] ref main", New(ErrKindNotFound, "ref main").Error())
	assert.Equal(t, "[timeout] query: context deadline exceeded",
		Wrap(ErrKindTimeout, "query", errors.New("context deadline exceeded")).Error())
}
