// Package file provides the TOML configuration store.
//
// The file groups settings into tables ([corpus], [chunker], [rerank], ...).
// Keys are addressed in dot notation, so "rerank.threshold" reads the
// threshold key of the [rerank] table.
package file
