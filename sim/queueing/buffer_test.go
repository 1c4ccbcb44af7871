package queueing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/sim/timing"
)

var _ = Describe("BufferImpl", func() {
	var (
		engine *timing.SerialEngine
		buf    Buffer
	)

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		buf = MakeBufferBuilder().
			WithTimeTeller(engine).
			WithCapacity(2).
			Build("Buf")
	})

	It("should allow push and pop", func() {
		Expect(buf.Name()).To(Equal("Buf"))
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
	})

	It("should report pushes and pops to hooks", func() {
		positions := make([]*hooking.HookPos, 0)
		buf.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		buf.Push(1)
		buf.Pop()

		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosBufPush, HookPosBufPop,
		}))
	})

	It("should refuse a zero capacity", func() {
		Expect(func() {
			MakeBufferBuilder().WithCapacity(0).Build("Bad")
		}).To(Panic())
	})
})
