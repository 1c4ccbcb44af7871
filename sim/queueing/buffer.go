// Package queueing provides bounded FIFO buffers.
package queueing

import (
	"log"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// A Buffer is a fifo queue for anything
type Buffer interface {
	hooking.Hookable

	Name() string
	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int
	Clear()
}

// BufferBuilder is a builder for Buffer.
type BufferBuilder struct {
	timeTeller timing.TimeTeller
	capacity   int
}

// MakeBufferBuilder creates a BufferBuilder with a capacity of 1.
func MakeBufferBuilder() BufferBuilder {
	return BufferBuilder{capacity: 1}
}

// WithTimeTeller sets the clock used to timestamp buffer hooks.
func (b BufferBuilder) WithTimeTeller(t timing.TimeTeller) BufferBuilder {
	b.timeTeller = t
	return b
}

// WithCapacity defines the capacity of the buffer.
func (b BufferBuilder) WithCapacity(capacity int) BufferBuilder {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder) Build(name string) Buffer {
	if b.capacity <= 0 {
		log.Panicf("buffer %s must have a positive capacity", name)
	}

	return &bufferImpl{
		name:       name,
		capacity:   b.capacity,
		timeTeller: b.timeTeller,
	}
}

type bufferImpl struct {
	hooking.HookableBase

	name       string
	timeTeller timing.TimeTeller
	capacity   int
	elements   []interface{}
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e interface{}) {
	if len(b.elements) >= b.capacity {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	b.invoke(HookPosBufPush, e)
}

func (b *bufferImpl) Pop() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	b.invoke(HookPosBufPop, e)

	return e
}

func (b *bufferImpl) invoke(pos *hooking.HookPos, e interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	ctx := hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	}

	if b.timeTeller != nil {
		ctx.Now = b.timeTeller.Now()
	}

	b.InvokeHook(ctx)
}

func (b *bufferImpl) Peek() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}
