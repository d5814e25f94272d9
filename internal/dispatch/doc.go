// Package dispatch schedules a batch's items across a bounded pool of
// workers. The pool draws from a shared claim cursor rather than static
// partitions, so completion order is unspecified while submission order stays
// available to anything that needs determinism downstream.
package dispatch
