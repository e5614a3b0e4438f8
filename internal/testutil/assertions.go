// Package testutil provides common test utilities and assertions for the
// pool and bridge tests.
package testutil

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireErrorAs asserts that err matches target via errors.As and returns it.
//
//	timeoutErr := testutil.RequireErrorAs[*errors.TimeoutError](t, err)
func RequireErrorAs[T error](t *testing.T, err error, msgAndArgs ...interface{}) T {
	t.Helper()
	var target T
	require.Error(t, err, msgAndArgs...)
	require.True(t, errors.As(err, &target), "expected %s in chain, got %T: %v",
		reflect.TypeFor[T](), err, err)
	return target
}

// AssertValueEqual compares two boundary values with Value.Equal.
func AssertValueEqual(t *testing.T, expected, actual entities.Value, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, expected.Equal(actual), append([]interface{}{"expected %s, got %s", expected, actual}, msgAndArgs...)...)
}

// AssertPoolInvariant checks available + busy == total <= capacity.
func AssertPoolInvariant(t *testing.T, stats entities.PoolStats) {
	t.Helper()
	assert.Equal(t, stats.Total, stats.Available+stats.Busy, "available+busy must equal total: %+v", stats)
	assert.LessOrEqual(t, stats.Total, stats.Capacity, "total must not exceed capacity: %+v", stats)
	assert.GreaterOrEqual(t, stats.Available, 0)
	assert.GreaterOrEqual(t, stats.Busy, 0)
}

// AssertDurationWithin asserts that a duration is within a tolerance of an expected value
func AssertDurationWithin(t *testing.T, expected, actual, tolerance time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	diff := expected - actual
	if diff < 0 {
		diff = -diff
	}

	assert.LessOrEqual(t, diff, tolerance, msgAndArgs...)
}

// Eventually polls cond until it holds or the timeout expires.
func Eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond, msgAndArgs...)
}
