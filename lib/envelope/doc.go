// Package envelope encodes and verifies the persisted document format:
//
//	{"schemaVersion": 3, "minimalSupportedVersion": 2, "data": {...}}
//
// schemaVersion is the version of the migration chain that last wrote the document and
// minimalSupportedVersion is the oldest chain length that is still able to read it. The data
// node is an opaque JSON tree (objects decode to map[string]any, numbers to float64).
package envelope
