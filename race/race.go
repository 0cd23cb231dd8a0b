// Package race implements the Happy-Eyeballs-style concurrent
// connection racer of spec.md §4.3: a bounded task set that spawns
// candidate attempts with a configurable staggering delay, returns
// the first success, and aborts the rest.
package race

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ErrNoCandidates is the synthetic error Run returns when the
// candidate list is empty (the spec.md §4.3 fallback). When every
// candidate fails, including by timing out through its context, Run
// returns a *FirstError instead.
var ErrNoCandidates = errors.New("race: no candidates succeeded")

// Candidate is one attempt future: given a context it may be canceled
// through, produce a result or fail.
type Candidate[T any] func(ctx context.Context) (T, error)

// Stagger selects the racer's spawn policy (spec.md §4.3):
//   - nil:              strictly sequential, one candidate at a time.
//   - a zero duration:  spawn every candidate immediately.
//   - a positive value: spawn one, wait up to the duration for it to
//     resolve, then spawn the next if it hasn't.
type Stagger = *time.Duration

// Immediate is the Stagger value that spawns every candidate at once.
func Immediate() Stagger {
	d := time.Duration(0)
	return &d
}

// Delay returns a Stagger that waits d between spawns.
func Delay(d time.Duration) Stagger {
	return &d
}

type result[T any] struct {
	idx   int
	value T
	err   error
}

// FirstError is the error Run returns when every candidate fails. It
// reports the first failure observed in completion order (not spawn
// order) as its Error()/Unwrap() value, while keeping every
// candidate's error reachable via All() for diagnostic surfacing.
type FirstError struct {
	first error
	all   *multierror.Error
}

func (f *FirstError) Error() string { return f.first.Error() }
func (f *FirstError) Unwrap() error { return f.first }

// All returns every candidate's error, in completion order.
func (f *FirstError) All() []error {
	if f.all == nil {
		return []error{f.first}
	}
	return f.all.Errors
}

// Run races candidates and returns the first success. On total
// failure it returns a *FirstError. If candidates is empty,
// ErrNoCandidates is returned directly.
//
// On return, every spawned candidate has been canceled or has joined:
// Run never leaks a goroutine past its own return.
func Run[T any](ctx context.Context, candidates []Candidate[T], stagger Stagger) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, ErrNoCandidates
	}

	raceCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	results := make(chan result[T])
	var wg sync.WaitGroup

	spawn := func(i int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := invoke(raceCtx, candidates[i])
			select {
			case results <- result[T]{idx: i, value: v, err: err}:
			case <-raceCtx.Done():
			}
		}()
	}

	var (
		merr     *multierror.Error
		firstErr error
		settled  int
	)

	// handle folds one settled result into the running error state and
	// reports whether it was a success (in which case v is the winner).
	handle := func(r result[T]) (T, bool) {
		settled++
		if r.err == nil {
			return r.value, true
		}
		merr = multierror.Append(merr, r.err)
		if firstErr == nil {
			firstErr = r.err
		}
		return zero, false
	}

	for i := range candidates {
		spawn(i)

		switch {
		case stagger == nil:
			// Sequential: block for this candidate alone before
			// spawning the next.
			if v, ok := handle(<-results); ok {
				cancelAll()
				wg.Wait()
				return v, nil
			}
		case *stagger == 0:
			// Spawn all immediately; don't wait between spawns.
		default:
			timer := time.NewTimer(*stagger)
			select {
			case r := <-results:
				timer.Stop()
				if v, ok := handle(r); ok {
					cancelAll()
					wg.Wait()
					return v, nil
				}
			case <-timer.C:
				// Still pending: move on to the next candidate while
				// this one keeps running.
			}
		}
	}

	// Drain whatever hasn't settled yet.
	for settled < len(candidates) {
		if v, ok := handle(<-results); ok {
			cancelAll()
			wg.Wait()
			return v, nil
		}
	}

	cancelAll()
	wg.Wait()
	if firstErr == nil {
		return zero, ErrNoCandidates
	}
	return zero, &FirstError{first: firstErr, all: merr}
}

// invoke runs a candidate, converting a panic into an error so one
// misbehaving candidate can't take the whole race down with it.
func invoke[T any](ctx context.Context, c Candidate[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errors.New("race: candidate panicked")
			}
		}
	}()
	return c(ctx)
}
