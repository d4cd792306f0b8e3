// Package delivery implements the bounded mailbox polling state machine.
//
// # States
//
// A polling run moves through:
//
//	Idle -> Polling -> {Found, Exhausted}
//
// [Progress] holds the attempt counter and the state. [Progress.Begin] refuses
// to start an attempt once the run is complete or the budget is spent, so
// Attempts never exceeds MaxAttempts. Found and Exhausted are terminal; only a
// [Progress.Reset] (a new address) returns the run to Idle.
//
// # Drivers
//
// The state machine is driven by an [Attempt] step function and is agnostic of
// how attempts are scheduled. Two drivers are provided:
//
//   - [Run] blocks the caller, waiting a fixed interval between attempts.
//   - [Schedule] runs each attempt as a timer task and returns immediately.
//
// Both start with an immediate attempt, never wait after the final one and
// stop early as soon as the step reports done.
package delivery
