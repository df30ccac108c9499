/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LeakyBucketLimiterTestSuite struct {
	suite.Suite
}

func TestLeakyBucketLimiter(t *testing.T) {
	suite.Run(t, new(LeakyBucketLimiterTestSuite))
}

func (ts *LeakyBucketLimiterTestSuite) TestBurstThenReject() {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 5, Duration: time.Minute}, 4, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allow, retryAfter, allowErr := limiter.Allow(ctx, "k")
		ts.Require().NoError(allowErr)
		ts.True(allow)
		ts.Zero(retryAfter)
	}
	allow, retryAfter, err := limiter.Allow(ctx, "k")
	ts.Require().NoError(err)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
	ts.LessOrEqual(retryAfter, 12*time.Second)

	allow, _, err = limiter.Allow(ctx, "other")
	ts.Require().NoError(err)
	ts.True(allow)
}

type SlidingWindowLimiterTestSuite struct {
	suite.Suite
}

func TestSlidingWindowLimiter(t *testing.T) {
	suite.Run(t, new(SlidingWindowLimiterTestSuite))
}

func (ts *SlidingWindowLimiterTestSuite) TestAllowSequential() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 2, Duration: time.Second}, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allow, retryAfter, allowErr := limiter.Allow(ctx, "k")
		ts.Require().NoError(allowErr)
		ts.True(allow)
		ts.Zero(retryAfter)
	}
	allow, retryAfter, err := limiter.Allow(ctx, "k")
	ts.Require().NoError(err)
	ts.False(allow)
	ts.Greater(retryAfter, time.Duration(0))
	ts.LessOrEqual(retryAfter, time.Second)
}

func (ts *SlidingWindowLimiterTestSuite) TestKeysAreIndependent() {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Minute}, 100)
	ts.Require().NoError(err)
	ctx := context.Background()

	allow, _, err := limiter.Allow(ctx, "a")
	ts.Require().NoError(err)
	ts.True(allow)
	allow, _, err = limiter.Allow(ctx, "b")
	ts.Require().NoError(err)
	ts.True(allow)
	allow, _, err = limiter.Allow(ctx, "a")
	ts.Require().NoError(err)
	ts.False(allow)
}
