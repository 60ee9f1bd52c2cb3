// Package store holds completed analyses in memory. It provides a
// thread-safe record store keyed by record ID, with TTL-based listing and
// background eviction. Both the REST upload path and the streaming ingest
// path write here, so one retention policy covers every capture source.
package store
