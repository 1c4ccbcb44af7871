// Package id generates identifiers for simulation objects.
package id

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

// NewIDGenerator returns a sequential generator whose first ID is "1". IDs
// are deterministic for a given sequence of calls.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

// Counter hands out increasing integer IDs. It is used for frame IDs and
// sequence numbers where a number is more convenient than a string.
type Counter struct {
	next uint64
}

// Next returns the next ID. The first value returned is 1.
func (c *Counter) Next() uint64 {
	return atomic.AddUint64(&c.next, 1)
}

// NewRunID returns a globally unique ID for naming the artifacts of a run.
// Unlike the sequential IDs, run IDs are not deterministic.
func NewRunID() string {
	return xid.New().String()
}
