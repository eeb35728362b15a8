package dataflow_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/locvowork/wage_calculator/pkg/dataflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	type shift struct {
		Session string
		Minutes int
	}

	source := dataflow.From(ctx, "a,90", "b,45", "retry,30", "broken")

	var (
		mu       sync.Mutex
		rejected []error
	)
	parsed := dataflow.Map(ctx, source, func(_ context.Context, s string) (shift, error) {
		id, minutes, ok := strings.Cut(s, ",")
		if !ok {
			return shift{}, fmt.Errorf("invalid row %q", s)
		}
		n, err := strconv.Atoi(minutes)
		return shift{Session: id, Minutes: n}, err
	}, dataflow.WithWorkers(2), dataflow.WithErrorHandler(func(err error) bool {
		mu.Lock()
		rejected = append(rejected, err)
		mu.Unlock()
		return true
	}))

	var attempts int32
	saved := dataflow.Map(ctx, parsed, func(_ context.Context, s shift) (shift, error) {
		if s.Session == "retry" && atomic.AddInt32(&attempts, 1) < 3 {
			return shift{}, errors.New("transient error")
		}
		return s, nil
	}, dataflow.WithRetry(3, func(int) time.Duration { return time.Millisecond }))

	var sessions []string
	total := 0
	err := dataflow.ForEach(ctx, saved, func(_ context.Context, s shift) error {
		sessions = append(sessions, s.Session)
		total += s.Minutes
		return nil
	})
	require.NoError(t, err)

	sort.Strings(sessions)
	assert.Equal(t, []string{"a", "b", "retry"}, sessions)
	assert.Equal(t, 165, total)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Error(), `invalid row "broken"`)
}

func TestForEach_StopsOnFirstError(t *testing.T) {
	ctx := context.Background()
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}

	var processed int32
	err := dataflow.ForEach(ctx, dataflow.From(ctx, items...), func(_ context.Context, n int) error {
		atomic.AddInt32(&processed, 1)
		if n == 3 {
			return errors.New("store offline")
		}
		return nil
	})

	require.EqualError(t, err, "store offline")
	assert.Less(t, int(atomic.LoadInt32(&processed)), len(items))
}

func TestForEach_ErrorHandlerAndRetry(t *testing.T) {
	ctx := context.Background()

	var calls int32
	var handled []int
	err := dataflow.ForEach(ctx, dataflow.From(ctx, 1, 2, 3), func(_ context.Context, n int) error {
		atomic.AddInt32(&calls, 1)
		if n == 2 {
			return errors.New("always fails")
		}
		return nil
	}, dataflow.WithRetry(2, nil), dataflow.WithErrorHandler(func(error) bool {
		handled = append(handled, 2)
		return true
	}))

	require.NoError(t, err)
	assert.Equal(t, []int{2}, handled)
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls), "one call each plus two retries")
}

func TestForEach_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dataflow.ForEach(ctx, dataflow.From(context.Background(), 1, 2), func(context.Context, int) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponentialBackoff(t *testing.T) {
	backoff := dataflow.ExponentialBackoff(10 * time.Millisecond)

	testCases := map[string]struct {
		attempt int
		want    time.Duration
	}{
		"first":  {attempt: 1, want: 10 * time.Millisecond},
		"third":  {attempt: 3, want: 40 * time.Millisecond},
		"clamps": {attempt: 0, want: 10 * time.Millisecond},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, backoff(tc.attempt))
		})
	}
}
