package httpapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/lending"
)

func Test_RetryOnOperationFailed_SucceedsAfterTransientFailures(t *testing.T) {
	// setup
	attempts := 0
	flaky := func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.Join(lending.ErrOperationFailed, errors.New("connection reset"))
		}

		return nil
	}

	// act
	err := retryOnOperationFailed(context.Background(), flaky)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func Test_RetryOnOperationFailed_GivesUpAfterMaxAttempts(t *testing.T) {
	// setup
	attempts := 0
	broken := func(_ context.Context) error {
		attempts++
		return errors.Join(lending.ErrOperationFailed, errors.New("store is down"))
	}

	// act
	err := retryOnOperationFailed(context.Background(), broken)

	// assert
	require.Error(t, err)
	assert.ErrorIs(t, err, lending.ErrOperationFailed)
	assert.Equal(t, retryMaxAttempts, attempts)
}

func Test_RetryOnOperationFailed_DoesNotRetryDomainRejections(t *testing.T) {
	// setup
	attempts := 0
	rejecting := func(_ context.Context) error {
		attempts++
		return lending.ErrBookNotAvailable
	}

	// act
	err := retryOnOperationFailed(context.Background(), rejecting)

	// assert
	assert.ErrorIs(t, err, lending.ErrBookNotAvailable)
	assert.Equal(t, 1, attempts, "domain rejections must fail fast")
}

func Test_RetryOnOperationFailed_AbortsWhenContextIsCancelled(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	failing := func(_ context.Context) error {
		attempts++
		cancel() // the client goes away after the first failure

		return errors.Join(lending.ErrOperationFailed, errors.New("store is down"))
	}

	// act
	err := retryOnOperationFailed(ctx, failing)

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
