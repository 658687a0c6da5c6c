/*
Package storability checks that a value tree can be persisted losslessly as a document.

A storable tree consists only of plain data nodes:

  - nil, bool, integers, floats (NaN and ±Inf are rejected) and valid UTF-8 strings
  - slices and arrays of plain data
  - maps whose keys are either all strings or all numbers; numeric keys must form the
    contiguous sequence 1..n
  - pointers and interfaces that lead to plain data

Everything else (functions, channels, unsafe pointers, structs and types that carry methods)
is rejected. Self-referencing graphs are rejected as cyclic, while the same map or slice may
be shared by two different branches of the tree.

The first violation found in depth-first order is reported together with the dotted path to
the offending field, for example `data.players.3.name`. Map keys are visited in sorted order.

Normalize turns a storable tree into the plain shape that is written to the store. Numeric
keyed maps become lists, so they read back exactly as they were cached.
*/
package storability
