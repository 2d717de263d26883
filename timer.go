package uthread

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// virtualTimer drives the scheduler's quantum by arming ITIMER_VIRTUAL
// (CPU time the calling process actually spends running, as opposed to
// ITIMER_REAL's wall-clock ticks) and delivering each expiry as
// SIGVTALRM. A dedicated goroutine turns each signal into a single
// non-blocking push onto the scheduler's command queue, keeping the
// signal-handling path itself tiny.
type virtualTimer struct {
	sigCh chan os.Signal
	done  chan struct{}
}

// startVirtualTimer arms the interval timer at the given quantum and
// starts the goroutine that forwards each tick to onTick. Stopping it
// disarms the timer and releases the signal channel.
func startVirtualTimer(quantum time.Duration, onTick func()) (*virtualTimer, error) {
	if quantum <= 0 {
		return nil, ErrInvalidArgument
	}

	interval := unix.NsecToTimeval(quantum.Nanoseconds())
	it := &unix.Itimerval{Interval: interval, Value: interval}
	if err := unix.Setitimer(unix.ITIMER_VIRTUAL, it, nil); err != nil {
		return nil, fmt.Errorf("%w: setitimer: %v", ErrKernelCall, err)
	}

	vt := &virtualTimer{
		sigCh: make(chan os.Signal, 8),
		done:  make(chan struct{}),
	}
	signal.Notify(vt.sigCh, syscall.SIGVTALRM)

	go func() {
		for {
			select {
			case <-vt.sigCh:
				onTick()
			case <-vt.done:
				return
			}
		}
	}()

	return vt, nil
}

// stop disarms the timer and shuts down the forwarding goroutine.
func (vt *virtualTimer) stop() {
	signal.Stop(vt.sigCh)
	close(vt.done)
	var zero unix.Itimerval
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, &zero, nil)
}
