// Package fuzztests houses Go fuzz harnesses for the classification path
// (bytes -> tokens -> histogram -> scores) and the batch-file parser. They
// guard against panics and check the selection invariants on arbitrary input.
//
// Run one with: go test ./internal/fuzz -run=^$ -fuzz=FuzzClassify
package fuzztests
