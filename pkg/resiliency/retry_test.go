/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotnet/aspire-sub011/pkg/testutil"
)

func TestRetryGet(t *testing.T) {
	t.Parallel()

	t.Run("first attempt succeeds", func(t *testing.T) {
		ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
		defer cancel()

		attempts := 0
		value, err := RetryGet(ctx, backoff.NewConstantBackOff(time.Millisecond), func() (int, error) {
			attempts++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, value)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries until success", func(t *testing.T) {
		ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
		defer cancel()

		attempts := 0
		value, err := RetryGet(ctx, backoff.NewConstantBackOff(time.Millisecond), func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("not ready")
			}
			return "ready", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ready", value)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up with the back-off", func(t *testing.T) {
		ctx, cancel := testutil.GetTestContext(t, 30*time.Second)
		defer cancel()

		attemptErr := errors.New("still failing")
		b := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
		_, err := RetryGet(ctx, b, func() (int, error) {
			return 0, attemptErr
		})
		require.ErrorIs(t, err, attemptErr)
	})

	t.Run("deadline reports the last attempt error too", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		attemptErr := errors.New("connection refused")
		_, err := RetryGet(ctx, backoff.NewConstantBackOff(10*time.Millisecond), func() (int, error) {
			return 0, attemptErr
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, attemptErr)
	})
}
