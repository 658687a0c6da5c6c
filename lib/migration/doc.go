// Package migration upgrades loaded document data through an ordered chain of migrations.
//
// The migration at position i (1-based) migrates data from schema version i-1 to i, so the
// length of the chain is the current schema version. Data stored at version v only passes
// through migrations v+1 .. len(chain), each exactly once and in ascending order.
//
// A migration that is not backwards compatible raises the minimal supported version of the
// document to its own position. Processes whose chain is shorter than that floor refuse to
// open the document.
package migration
