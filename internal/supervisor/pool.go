package supervisor

import (
	"fmt"
	"time"
)

// poolCapacity is the worker slot count. Only one unit is ever
// outstanding by design; the second slot lets a previously abandoned
// unit keep draining without blocking the next submission.
const poolCapacity = 2

// pool runs units of work under a hard wall-clock deadline.
//
// submit always returns by its deadline. A unit that overruns is
// abandoned, not cancelled: it keeps running on its own goroutine, its
// eventual result is discarded, and its slot frees when it returns.
type pool struct {
	slots chan struct{}
}

func newPool(capacity int) *pool {
	return &pool{slots: make(chan struct{}, capacity)}
}

// submit runs unit and waits at most timeout for it to finish. The
// deadline covers slot acquisition and execution together, so a slot
// starved by stragglers surfaces as the same timeout a hung unit does.
// Panics inside the unit are recovered and reported as unit failure.
func (p *pool) submit(timeout time.Duration, unit func() error) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case p.slots <- struct{}{}:
	case <-deadline.C:
		return fmt.Errorf("%w: no worker slot freed within %v", ErrTimeout, timeout)
	}

	result := make(chan error, 1)
	go func() {
		defer func() { <-p.slots }()
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("unit of work panicked: %v", r)
			}
		}()
		result <- unit()
	}()

	select {
	case err := <-result:
		return err
	case <-deadline.C:
		return fmt.Errorf("%w: no result within %v", ErrTimeout, timeout)
	}
}

// drain waits for every slot to free, bounded by timeout. Used during
// cleanup so abandoned units get a final chance to return before the
// host moves on. Reports whether the pool fully quiesced.
func (p *pool) drain(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	held := 0
	for held < cap(p.slots) {
		select {
		case p.slots <- struct{}{}:
			held++
		case <-deadline.C:
			for ; held > 0; held-- {
				<-p.slots
			}
			return false
		}
	}
	for ; held > 0; held-- {
		<-p.slots
	}
	return true
}
