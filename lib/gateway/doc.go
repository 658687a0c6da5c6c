// Package gateway wraps a store.IStore with the operations documents are built on: Get,
// Remove and ConditionalUpdate.
//
// ConditionalUpdate is an optimistic read-transform-write loop. The current value is read,
// handed to the transform and written back with CompareAndSwap against the value that was
// read. If another writer changed the key in between, the swap fails and the transform runs
// again on the new value. The transform must therefore be a pure function of its input.
//
// Every operation runs inside the retry engine. Transient store faults are wrapped in
// ErrService, a denied request budget yields ErrBudgetExhausted. Both are retried and
// surfaced after the last attempt. A transform that calls cancel aborts the update without a
// write and its error is returned as is.
package gateway
