// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryWithBackoff runs operation until it succeeds, maxAttempts is reached or
// ctx is done. The delay starts at baseDelay and doubles after every failure.
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff[T any](ctx context.Context, operation func() (T, error), maxAttempts int, baseDelay time.Duration) (T, error) {
	var zero T
	if maxAttempts <= 0 {
		return zero, ErrInvalidMaxAttempts
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = baseDelay << 10

	attempt := 0
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		return operation()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "next", next, "error", err)
		}),
	)
	if err == nil && attempt > 1 {
		slog.Debug("operation succeeded after retry", "attempt", attempt)
	}
	return result, err
}
