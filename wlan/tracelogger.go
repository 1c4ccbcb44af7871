package wlan

import (
	"log"

	"github.com/sarchlab/wlansim/sim/hooking"
	"github.com/sarchlab/wlansim/wireless"
	"github.com/sarchlab/wlansim/wireless/mac"
	"github.com/sarchlab/wlansim/wireless/phy"
)

// TraceLogger is a hook that prints radio and MAC activity.
type TraceLogger struct {
	logger *log.Logger
}

// NewTraceLogger returns a TraceLogger that writes into the logger.
func NewTraceLogger(logger *log.Logger) *TraceLogger {
	return &TraceLogger{logger: logger}
}

// Func writes one line per transmission, reception, drop and MAC state
// change.
func (h *TraceLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case phy.HookPosPhyTxBegin:
		info := ctx.Detail.(phy.TxInfo)
		h.logger.Printf("%.10f, %s, %s, %s, %.10f",
			ctx.Now, info.Sender, ctx.Pos.Name, ctx.Item, info.Duration)
	case phy.HookPosPhyRxEnd:
		info := ctx.Detail.(phy.RxInfo)
		h.logger.Printf("%.10f, %s, %s, %s, %.2f dB",
			ctx.Now, info.Receiver, ctx.Pos.Name, ctx.Item, info.SinrDb)
	case phy.HookPosPhyRxDrop:
		info := ctx.Detail.(phy.DropInfo)
		h.logger.Printf("%.10f, %s, %s, %s, %s",
			ctx.Now, info.Receiver, ctx.Pos.Name, ctx.Item, info.Reason)
	case mac.HookPosMacTxDrop:
		f := ctx.Item.(*wireless.Frame)
		h.logger.Printf("%.10f, %s, %s, %s, %s",
			ctx.Now, f.Src, ctx.Pos.Name, f, ctx.Detail)
	case mac.HookPosMacState:
		change := ctx.Item.(mac.StateChange)
		h.logger.Printf("%.10f, %s, %s, %s -> %s",
			ctx.Now, ctx.Domain.(*mac.Mac).ID(), ctx.Pos.Name,
			change.From, change.To)
	}
}
