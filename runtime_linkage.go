package uthread

import (
	"unsafe"

	_ "unsafe" // for go:linkname
)

// This file binds a handful of unexported runtime scheduling primitives
// so that parking and waking a goroutine costs a single atomic status
// change instead of a full channel send/receive: getg(), goready(), and
// an mcall-based fast-park that drops the calling goroutine off its M
// without going through the normal channel/select machinery.
//
// Every symbol below must keep matching the linked Go toolchain's
// internal signature; that coupling is the price of the latency this
// buys over a channel-based park/wake pair.

//go:linkname getg runtime.getg
func getg() unsafe.Pointer

// GetG returns an opaque handle to the calling goroutine's runtime.g.
// The thread table stores one of these per slot once the slot's
// goroutine has started, and the scheduler transfers control by
// reading it back.
func GetG() unsafe.Pointer { return getg() }

//go:linkname readgstatus runtime.readgstatus
func readgstatus(gp unsafe.Pointer) uint32

// Readgstatus reports the runtime status of the goroutine behind gp.
func Readgstatus(gp unsafe.Pointer) uint32 { return readgstatus(gp) }

//go:linkname casgstatus runtime.casgstatus
func casgstatus(gp unsafe.Pointer, oldval, newval uint32)

//go:linkname dropg runtime.dropg
func dropg()

//go:linkname schedule runtime.schedule
func schedule()

//go:linkname mcall runtime.mcall
func mcall(fn func(unsafe.Pointer))

//go:linkname goready runtime.goready
func goready(gp unsafe.Pointer, traceskip int)

// GoReady marks gp runnable again. The caller must be a different
// goroutine than gp (a parked goroutine cannot ready itself).
func GoReady(gp unsafe.Pointer) { goready(gp, 1) }

//go:linkname goyield runtime.goyield
func goyield()

//go:linkname nanotime runtime.nanotime
func nanotime() int64

// Nanotime is a cheap monotonic clock read straight from the runtime.
// Nothing else in this package calls it; Dump prints no timestamps.
func Nanotime() int64 { return nanotime() }

//go:linkname runtime_canSpin sync.runtime_canSpin
func runtime_canSpin(i int) bool

//go:linkname runtime_doSpin sync.runtime_doSpin
func runtime_doSpin()

// goroutine status values this package cares about (runtime2.go's g.atomicstatus).
const (
	_Gidle     = 0
	_Grunnable = 1
	_Grunning  = 2
	_Gsyscall  = 3
	_Gwaiting  = 4
	_Gdead     = 6
)

// fastPark drops the calling goroutine off its M and hands the M back
// to the scheduler, without the calling goroutine ever touching a
// channel or a mutex. It is invoked via mcall so it runs on the g0
// (system) stack, which is required to mutate the calling g's own
// status.
func fastPark(gp unsafe.Pointer) {
	dropg()
	casgstatus(gp, _Grunning, _Gwaiting)
	schedule()
}

// ParkSelf suspends the calling goroutine until some other goroutine
// calls GoReady on its GetG() handle.
func ParkSelf() {
	mcall(fastPark)
}

// AwaitParked spin-waits (falling back to a cooperative yield) until gp
// has actually reached the parked (_Gwaiting) state, then readies it. A
// goroutine that has just been told to park may not have reached
// _Gwaiting yet by the time its successor is chosen, so the waker must
// confirm before calling GoReady or the ready transition is silently
// lost.
func AwaitParked(gp unsafe.Pointer) {
	iter := 0
	for Readgstatus(gp) != _Gwaiting {
		if runtime_canSpin(iter) {
			iter++
			runtime_doSpin()
		} else {
			goyield()
		}
	}
	GoReady(gp)
}
