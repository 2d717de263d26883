package uthread

import "unsafe"

// MaxThreadNum is the fixed number of thread-table slots. Slot 0 is
// permanently reserved for the primary thread.
const MaxThreadNum = 100

// StackSize is the size, in bytes, of the scratch buffer each slot
// exclusively owns. Go goroutines grow their own machine stacks on
// demand, so this does not back the goroutine itself; it is kept as a
// real per-slot buffer (returned by Scratch) so that a fixed-size
// byte buffer, reused across the lifetimes of a slot, is still
// available to callers that want one.
const StackSize = 4096

// State is a thread's position in its lifecycle. It is exposed only for
// debug introspection, never as part of any operation's contract.
type State int32

const (
	Unused State = iota
	Ready
	Running
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Unused:
		return "UNUSED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Terminated:
		return "TERMINATED"
	default:
		return "INVALID"
	}
}

// threadRecord is one thread-table slot. tid equals the slot index;
// identity is the slot, never a separately allocated handle.
type threadRecord struct {
	tid        int
	state      State
	quantums   int
	sleepUntil int64 // 0 if not sleeping, else the waking total_quantums value
	entry      func()
	g          unsafe.Pointer // context: the goroutine handle (nil until the slot's goroutine has started running)
	preempt    bool           // set by a timer tick, cleared and acted on at the slot's own next checkpoint
	scratch    [StackSize]byte
}

// reset returns the slot to its UNUSED, freshly-reclaimed shape. Called
// both when the table is first built and when terminate reclaims a
// slot for immediate reuse.
func (t *threadRecord) reset(tid int) {
	t.tid = tid
	t.state = Unused
	t.quantums = 0
	t.sleepUntil = 0
	t.entry = nil
	t.g = nil
	t.preempt = false
}

// table is the fixed-capacity thread table: a flat array of slots,
// indexed directly by tid, with no separate allocator metadata.
type table struct {
	slots [MaxThreadNum]threadRecord
}

func newTable() *table {
	tb := &table{}
	for i := range tb.slots {
		tb.slots[i].reset(i)
	}
	return tb
}

// alloc returns the lowest-indexed UNUSED slot at tid >= 1, or -1 if the
// table is full.
func (tb *table) alloc() int {
	for i := 1; i < MaxThreadNum; i++ {
		if tb.slots[i].state == Unused {
			return i
		}
	}
	return -1
}

// get returns the record for tid and whether tid is in range and live
// (state != Unused). The library never accepts a tid whose current
// state is Unused.
func (tb *table) get(tid int) (*threadRecord, bool) {
	if tid < 0 || tid >= MaxThreadNum {
		return nil, false
	}
	rec := &tb.slots[tid]
	if rec.state == Unused {
		return nil, false
	}
	return rec, true
}
