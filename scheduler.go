package uthread

import (
	"fmt"
	"io"
	"sync"
)

// Scheduler is the process-wide scheduling state, wrapped in one value
// even though the public API exposes it as a package-level singleton.
// mu is the guarded region: every mutator of shared state (table, ready
// queue, counters) holds mu for the duration of its critical section,
// playing the same role a masked virtual-timer signal plays in a
// single-threaded C scheduler.
type Scheduler struct {
	mu            sync.Mutex
	tb            *table
	rq            readyQueue
	totalQuantums int64
	currentTid    int

	logger Logger
	tmr    *virtualTimer
	cmds   *commandQueue
	wake   chan struct{}
	stop   chan struct{}
	doneWg sync.WaitGroup
}

// newScheduler builds a Scheduler with slot 0 already RUNNING: the
// primary (calling) thread's record starts at quantums = 1 and
// total_quantums = 1, since the primary is implicitly "running" for
// one quantum before any timer tick has fired.
func newScheduler(logger Logger) *Scheduler {
	s := &Scheduler{
		tb:            newTable(),
		totalQuantums: 1,
		currentTid:    0,
		logger:        logger,
		cmds:          newCommandQueue(),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	primary := &s.tb.slots[0]
	primary.state = Running
	primary.quantums = 1
	primary.g = GetG()
	return s
}

// notify pushes cmd onto the lock-free command queue and wakes the
// monitor goroutine. It never blocks: the wake channel is buffered to 1
// and a full channel means the monitor is already about to look, so the
// send is best-effort (mirrors how signal.Notify itself drops a signal
// rather than blocking the sender).
func (s *Scheduler) notify(cmd command) {
	s.cmds.push(cmd)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// monitor drains the command queue and processes ticks. It exists so
// the goroutine reading SIGVTALRM from the OS (timer.go) never does more
// than a fast, non-blocking push — the same reason real signal handlers
// keep handlers tiny and defer real work elsewhere.
func (s *Scheduler) monitor() {
	defer s.doneWg.Done()
	for {
		select {
		case <-s.wake:
			s.cmds.drain(s.handleCommand)
		case <-s.stop:
			s.cmds.drain(s.handleCommand)
			return
		}
	}
}

func (s *Scheduler) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdTick:
		s.handleTick()
	case cmdSpawned:
		s.logger.Debugf("thread %d spawned", cmd.tid)
	case cmdResumed:
		s.logger.Debugf("thread %d resumed", cmd.tid)
	case cmdYielded:
		s.logger.Debugf("thread %d yielded", cmd.tid)
	}
}

// handleTick runs the per-tick bookkeeping: increment total_quantums,
// increment the running thread's own quantum count, sweep expired
// sleepers awake, and — if anyone else is now ready — flag the running
// thread for cooperative preemption at its next checkpoint. Go gives
// user code no portable way to force a running goroutine to stop at an
// arbitrary instruction, so quantum-boundary preemption is requested
// here and honored at the running thread's next library call (see
// checkpoint below).
func (s *Scheduler) handleTick() {
	s.mu.Lock()
	s.totalQuantums++
	cur := &s.tb.slots[s.currentTid]
	cur.quantums++
	s.sweep()
	requestPreempt := !s.rq.empty()
	if requestPreempt {
		cur.preempt = true
	}
	total, tid, q := s.totalQuantums, s.currentTid, cur.quantums
	s.mu.Unlock()
	s.logger.Debugf("tick total=%d current=%d quantums=%d preempt=%v", total, tid, q, requestPreempt)
}

// sweep transitions every sleeping thread whose wakeup time has arrived
// to READY and enqueues it. Callers must hold mu.
func (s *Scheduler) sweep() {
	for i := 1; i < MaxThreadNum; i++ {
		rec := &s.tb.slots[i]
		if rec.state == Blocked && rec.sleepUntil > 0 && rec.sleepUntil <= s.totalQuantums {
			rec.sleepUntil = 0
			rec.state = Ready
			s.rq.enqueue(i)
		}
	}
}

// dequeueReady pops the head of the ready queue, skipping any tid whose
// slot is no longer READY — a tid can be terminated by another thread
// while it is still sitting in the queue, and removing it from the
// middle of the FIFO isn't worth the bookkeeping when a cheap skip on
// dequeue does the same job. Callers must hold mu.
func (s *Scheduler) dequeueReady() int {
	for {
		tid := s.rq.dequeue()
		if tid == -1 {
			return -1
		}
		if rec, ok := s.tb.get(tid); ok && rec.state == Ready {
			return tid
		}
	}
}

// checkpoint is called at the top of every API operation in uthread.go
// except Init, SetLogger and Scratch. If the timer has flagged the calling (== currently
// running) thread for preemption since its last checkpoint, this
// performs the actual handoff: demote self to READY, enqueue, and yield.
func (s *Scheduler) checkpoint() {
	s.mu.Lock()
	tid := s.currentTid
	rec := &s.tb.slots[tid]
	if !rec.preempt {
		s.mu.Unlock()
		return
	}
	rec.preempt = false
	rec.state = Ready
	s.rq.enqueue(tid)
	s.mu.Unlock()
	s.yield(tid)
}

// yield hands the CPU to the next ready thread (if any) and parks tid
// until it is dispatched again. The caller must have already updated
// tid's own state (to READY, BLOCKED, ...) before calling this. yield
// never writes another thread's state: the thread it wakes marks itself
// RUNNING in onResume, and yield does the same for tid once tid is
// dispatched again.
func (s *Scheduler) yield(tid int) {
	s.mu.Lock()
	s.sweep()
	next := s.dequeueReady()
	s.mu.Unlock()

	if next == tid {
		// A no-op switch: the head of the ready queue turned out to be
		// the calling thread's own tid (e.g. it was re-enqueued by its
		// own checkpoint and nothing else is actually ready). This
		// goroutine never stopped executing, so it cannot wait for
		// itself to reach parked — AwaitParked would spin forever.
		// Nothing needs to be handed off; just reaffirm the bookkeeping.
		s.onResume(tid)
		return
	}
	if next != -1 {
		if nextRec, ok := s.tb.get(next); ok {
			AwaitParked(nextRec.g)
		}
	}
	// next == -1: nobody else is ready. We park anyway; only another
	// thread's yield can GoReady us, since Resume/Spawn/sweep only
	// enqueue. Programs are expected to keep at least one
	// always-runnable thread alive.
	ParkSelf()
	s.onResume(tid)
}

// yieldFinal is yield's terminate-self variant: it never calls onResume
// because tid's slot has already been reclaimed and its goroutine must
// never run user code again.
func (s *Scheduler) yieldFinal(tid int) {
	s.mu.Lock()
	s.sweep()
	next := s.dequeueReady()
	s.mu.Unlock()

	// Guard the same self-dispatch case yield() guards: tid's slot has
	// already been reclaimed by the time this runs, so next should
	// never legitimately equal tid, but waking on our own handle would
	// livelock if it somehow did.
	if next != -1 && next != tid {
		if nextRec, ok := s.tb.get(next); ok {
			AwaitParked(nextRec.g)
		}
	}
	ParkSelf()
}

// onResume finalizes a dispatch: tid is now the thread physically
// executing Go code, so it becomes RUNNING and current_tid tracks it.
// Called once per dispatch, immediately after ParkSelf() returns.
func (s *Scheduler) onResume(tid int) {
	s.mu.Lock()
	s.currentTid = tid
	s.tb.slots[tid].state = Running
	s.mu.Unlock()
}

// Dump writes a one-line-per-slot snapshot of every live thread to w,
// for debugging only — its format is not part of any contract.
func (s *Scheduler) Dump(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(w, "uthread: total_quantums=%d current=%d\n", s.totalQuantums, s.currentTid)
	for i := 0; i < MaxThreadNum; i++ {
		rec := &s.tb.slots[i]
		if rec.state == Unused {
			continue
		}
		fmt.Fprintf(w, "  tid=%d state=%s quantums=%d\n", rec.tid, rec.state, rec.quantums)
	}
}

// Dump writes a snapshot of the current scheduler state to w. It is a
// no-op if the library has not been initialized.
func Dump(w io.Writer) {
	if sched != nil {
		sched.Dump(w)
	}
}
