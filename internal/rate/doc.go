// Package rate provides fixed-window failure counters used to throttle
// repeated failed logins from one client.
//
// # Window semantics
//
// Fixed-window counters: the first failure in a window starts it, and the
// window expires Window after that first hit. Redis keys are
// "<prefix>:<key>" and use INCR plus a conditional EXPIRE.
//
// # What this package must NOT do
//
//   - Decide what a failure is (the router does).
//   - Be imported outside the rpcgate module.
package rate
