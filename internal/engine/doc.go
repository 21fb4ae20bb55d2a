// Package engine implements the PMU-30 virtual channel execution engine.
//
// The engine stores a bounded table of configured processing nodes
// (arithmetic, comparison, boolean logic, timers, PID control, hysteresis,
// rate limiting, debouncing, table lookup, moving-average filtering and
// a handful of switch/counter primitives), evaluates them once per control
// tick, and publishes the results into a shared channel namespace consumed
// by output links, telemetry and bus transmission.
//
// ARCHITECTURE:
//
// Single-Writer Tick Loop:
// All node state is mutated by exactly one caller - whoever drives Tick().
// The engine never spawns goroutines and never blocks; a tick runs to
// completion. This ensures:
// - Predictable node evaluation order (registration order)
// - Reproducible traces from the same inputs
// - No locking inside the evaluation path
//
// Tick Processing Flow:
// 1. Corruption guard re-checks table counts against capacity
// 2. Elapsed time computed once, shared by all time-based nodes
// 3. Nodes evaluated in registration order; outputs written to the
//    node record and the channel store
// 4. Output links evaluated strictly after all nodes, actuating the
//    physical output driver and mirroring 0/1000 into their own channel
//
// Nodes do NOT see each other's same-tick updates when ordered later in
// the table: the engine is a one-tick-per-hop pipeline, not a fully
// ordered dataflow graph. Output links, evaluated after the node pass,
// always see same-tick node values.
//
// NUMERIC MODEL:
//
// Channel values are 32-bit signed integers. Fractional quantities use a
// milli-unit fixed point (value x1000), so multiply and divide rescale by
// 1000 and division by zero yields 0, never a fault.
//
// All capacities are static. Evaluation never allocates: per-node state
// is sized when the node is registered, and the tick path only walks
// preallocated tables.
package engine
