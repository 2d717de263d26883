// Package uthread implements a cooperative-preemptive, single-process
// user-space thread library: a fixed-size table of threads scheduled
// round-robin, preempted at the running thread's first library call
// after each quantum boundary of a virtual-time timer, and switched by
// parking and waking goroutines directly through the Go runtime rather
// than through channels.
//
// Exactly one thread is ever logically RUNNING at a time. The caller of
// Init becomes thread 0, the primary thread, which can never be
// blocked, put to sleep, or terminated by anything other than the
// whole process exiting.
//
// Every operation returns a non-negative value on success; every
// failure is reported as -1, with no further detail exposed. SetLogger
// reports ticks and scheduling events, not failure reasons.
package uthread
