// Package backtrace implements exception backtrace capture for the Ember
// runtime.
//
// Capture is split into three stages with very different cost profiles:
//
//   - Stashing (really cheap): while an exception propagates, the unwinder
//     appends one Slot per unwound frame into the owning Context's
//     fixed-size buffer. This path runs on every frame of every raise and
//     never allocates.
//   - Raw snapshot (cheap): when someone actually wants the backtrace, the
//     buffer is frozen into an immutable Raw value. Raw slots are process
//     image dependent and unsafe to persist or ship elsewhere.
//   - Decoding (more expensive): a Raw is resolved into source-level Frames
//     using debug information, lazily and only when the trace is displayed
//     or inspected. Missing debug data degrades individual frames to
//     "unknown location" instead of failing the decode.
//
// Each logical thread-of-control owns exactly one Context; there is no
// cross-context mutation and no locking on the capture path. Schedulers
// that move work between carriers are responsible for migrating the
// Context (see Context.Transfer).
package backtrace
