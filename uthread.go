package uthread

import (
	"os"
	"runtime"
	"sync"
	"time"
	"unsafe"
)

var (
	initMu sync.Mutex
	sched  *Scheduler
)

// Init prepares the library: it builds the thread table, arms the
// virtual-time timer at the given quantum, and turns the calling
// goroutine into thread 0. It must be called exactly once, before any
// other operation, by the goroutine that will act as the primary
// thread. Calling it again re-initializes the library from scratch,
// discarding all previously spawned threads — useful for tests, not
// meant for production re-entry.
func Init(quantum time.Duration) int {
	initMu.Lock()
	defer initMu.Unlock()

	if quantum <= 0 {
		return asErrno(ErrInvalidArgument, 0)
	}

	if sched != nil {
		sched.shutdown()
	}

	runtime.GOMAXPROCS(1)

	s := newScheduler(noopLogger{})
	tmr, err := startVirtualTimer(quantum, func() { s.notify(command{kind: cmdTick}) })
	if err != nil {
		return asErrno(err, 0)
	}
	s.tmr = tmr
	s.doneWg.Add(1)
	go s.monitor()

	sched = s
	return 0
}

// shutdown disarms the timer and stops the monitor goroutine. Parked
// thread goroutines are deliberately left parked: nothing in the public
// contract promises to unwind in-flight user threads, only that a fresh
// Init starts the bookkeeping over.
func (s *Scheduler) shutdown() {
	if s.tmr != nil {
		s.tmr.stop()
	}
	close(s.stop)
	s.doneWg.Wait()
}

// SetLogger replaces the library's diagnostic sink. Safe to call at any
// time after Init.
func SetLogger(l Logger) {
	initMu.Lock()
	defer initMu.Unlock()
	if sched == nil || l == nil {
		return
	}
	sched.mu.Lock()
	sched.logger = l
	sched.mu.Unlock()
}

// trampoline is the goroutine body every spawned thread runs under. It
// reports its own goroutine handle, waits for its first dispatch,
// invokes the thread's entry point, then terminates itself.
func trampoline(tid int, entry func(), started chan unsafe.Pointer) {
	started <- GetG()
	ParkSelf()
	sched.onResume(tid)
	entry()
	Terminate(tid)
}

// Spawn creates a new thread running entry and returns its tid, or -1
// if entry is nil or no thread slot is free. The new thread starts in
// state READY; it is not guaranteed to run before Spawn returns.
func Spawn(entry func()) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()

	if entry == nil {
		return asErrno(ErrInvalidArgument, 0)
	}

	s.mu.Lock()
	tid := s.tb.alloc()
	if tid == -1 {
		s.mu.Unlock()
		return asErrno(ErrNoFreeSlot, 0)
	}
	rec := &s.tb.slots[tid]
	rec.entry = entry
	// Reserve the slot immediately so a concurrent Spawn can't also
	// alloc() it before the trampoline goroutine has even started;
	// BLOCKED is never picked up by alloc (not UNUSED) or by the ready
	// queue (never enqueued), so it is a safe placeholder until the
	// goroutine reports in below.
	rec.state = Blocked
	s.mu.Unlock()

	started := make(chan unsafe.Pointer, 1)
	go trampoline(tid, entry, started)
	gp := <-started

	s.mu.Lock()
	rec.g = gp
	rec.state = Ready
	rec.quantums = 0
	rec.sleepUntil = 0
	rec.preempt = false
	s.rq.enqueue(tid)
	s.mu.Unlock()

	s.notify(command{kind: cmdSpawned, tid: tid})
	return tid
}

// Terminate ends thread tid. Terminating the primary thread (tid 0)
// ends the whole process. Terminating the calling thread does not
// return: the goroutine parks permanently once another thread (if any)
// has been dispatched. Terminating any other live thread returns 0
// immediately; its slot is reclaimed to UNUSED right away, so its tid
// may be reused by a later Spawn.
func Terminate(tid int) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()

	if tid == 0 {
		// Ending the primary thread ends the whole program; there is no
		// partial-teardown contract to honor here.
		os.Exit(0)
	}

	s.mu.Lock()
	rec, ok := s.tb.get(tid)
	if !ok {
		s.mu.Unlock()
		return asErrno(ErrDeadThread, 0)
	}
	self := tid == s.currentTid
	rec.reset(tid)
	s.mu.Unlock()

	s.notify(command{kind: cmdYielded, tid: tid})
	if self {
		s.yieldFinal(tid)
		// unreachable: yieldFinal never returns for the calling thread
	}
	return 0
}

// Block suspends thread tid until a matching Resume. Blocking the
// primary thread is an error. Blocking an already-blocked thread is a
// no-op success. If tid is the calling thread, Block does not return
// until some other thread calls Resume on it.
func Block(tid int) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()

	if tid == 0 {
		return asErrno(ErrMainThread, 0)
	}

	s.mu.Lock()
	rec, ok := s.tb.get(tid)
	if !ok {
		s.mu.Unlock()
		return asErrno(ErrDeadThread, 0)
	}
	if rec.state == Blocked {
		s.mu.Unlock()
		return 0
	}
	self := tid == s.currentTid
	rec.state = Blocked
	rec.sleepUntil = 0
	s.mu.Unlock()

	if self {
		s.notify(command{kind: cmdYielded, tid: tid})
		s.yield(tid)
	}
	return 0
}

// Resume makes a blocked thread READY again, regardless of whether it
// was blocked by Block or is waiting out a Sleep. Resuming a thread
// that is not blocked is a no-op success. Resume never suspends the
// calling thread.
func Resume(tid int) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()

	if tid < 1 {
		return asErrno(ErrInvalidArgument, 0)
	}

	s.mu.Lock()
	rec, ok := s.tb.get(tid)
	if !ok {
		s.mu.Unlock()
		return asErrno(ErrDeadThread, 0)
	}
	if rec.state != Blocked {
		s.mu.Unlock()
		return 0
	}
	rec.state = Ready
	rec.sleepUntil = 0
	s.rq.enqueue(tid)
	s.mu.Unlock()

	s.notify(command{kind: cmdResumed, tid: tid})
	return 0
}

// Sleep blocks the calling thread until numQuantums more timer ticks
// have passed (the first of which ends the quantum already in
// progress), after which it becomes READY again on its own (no Resume
// required, though a Resume while asleep wakes it early). The primary
// thread may not call Sleep on itself.
func Sleep(numQuantums int) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()

	if numQuantums <= 0 {
		return asErrno(ErrInvalidArgument, 0)
	}

	s.mu.Lock()
	tid := s.currentTid
	if tid == 0 {
		s.mu.Unlock()
		return asErrno(ErrMainThread, 0)
	}
	rec := &s.tb.slots[tid]
	rec.state = Blocked
	rec.sleepUntil = s.totalQuantums + int64(numQuantums)
	s.mu.Unlock()

	s.notify(command{kind: cmdYielded, tid: tid})
	s.yield(tid)
	return 0
}

// GetTid returns the calling thread's own tid.
func GetTid() int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()
	s.mu.Lock()
	tid := s.currentTid
	s.mu.Unlock()
	return tid
}

// GetTotalQuantums returns the number of quantums that have elapsed
// since Init, counting the one the primary thread is implicitly
// credited with before the first tick.
func GetTotalQuantums() int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()
	s.mu.Lock()
	total := s.totalQuantums
	s.mu.Unlock()
	return int(total)
}

// GetQuantums returns the number of quantums thread tid has spent
// RUNNING, or -1 if tid does not name a currently live thread.
func GetQuantums(tid int) int {
	s := sched
	if s == nil {
		return asErrno(ErrNotInitialized, 0)
	}
	s.checkpoint()
	s.mu.Lock()
	rec, ok := s.tb.get(tid)
	var q int
	if ok {
		q = rec.quantums
	}
	s.mu.Unlock()
	if !ok {
		return asErrno(ErrDeadThread, 0)
	}
	return q
}

// Scratch returns the fixed-size byte buffer privately owned by tid's
// slot, for callers that want scratch storage with the same lifetime
// as the thread itself. It returns nil if tid does not name a
// currently live thread.
func Scratch(tid int) []byte {
	s := sched
	if s == nil {
		return nil
	}
	s.mu.Lock()
	rec, ok := s.tb.get(tid)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return rec.scratch[:]
}
