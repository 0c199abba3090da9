// Package tracing records the messages that components exchange.
package tracing

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/cubium/spacore/datarecording"
	"github.com/cubium/spacore/spa"
)

// MsgTableName is the table that message records are written into.
const MsgTableName = "spa_msgs"

// Directions recorded in the Direction column.
const (
	DirectionSend    = "send"
	DirectionRecv    = "recv"
	DirectionDropped = "drop"
)

type msgTableEntry struct {
	ID        string
	Session   string
	Component string
	Direction string
	Opcode    string
	Src       string
	Dst       string
	Dialog    int
	Bytes     int
	Reason    string
	Time      float64
}

// NamedHookable is a hookable object with a name.
type NamedHookable interface {
	spa.Named
	spa.Hookable
}

// MsgTracer writes one record per sent, received or dropped message.
type MsgTracer struct {
	lock     sync.Mutex
	recorder datarecording.DataRecorder
	clock    clock.Clock
	session  string
	domains  map[spa.Hookable]bool
}

// NewMsgTracer creates a tracer that writes into recorder. A nil clock uses
// the wall clock.
func NewMsgTracer(
	recorder datarecording.DataRecorder,
	clk clock.Clock,
) *MsgTracer {
	if clk == nil {
		clk = clock.New()
	}

	t := &MsgTracer{
		recorder: recorder,
		clock:    clk,
		session:  spa.GetIDGenerator().Generate(),
		domains:  make(map[spa.Hookable]bool),
	}

	recorder.CreateTable(MsgTableName, msgTableEntry{})

	return t
}

// Session returns the id shared by every record of this tracer.
func (t *MsgTracer) Session() string {
	return t.session
}

// CollectMsgTrace lets the tracer record the messages of domain.
func CollectMsgTrace(domain NamedHookable, t *MsgTracer) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.domains[domain] {
		panic(fmt.Sprintf("domain %s already has tracer %s",
			domain.Name(), reflect.TypeOf(t)))
	}

	t.domains[domain] = true
	domain.AcceptHook(t)
}

// Func records the message carried by the hook context.
func (t *MsgTracer) Func(ctx spa.HookCtx) {
	var direction string

	switch ctx.Pos {
	case spa.HookPosMsgSend:
		direction = DirectionSend
	case spa.HookPosMsgRecv:
		direction = DirectionRecv
	case spa.HookPosMsgDropped:
		direction = DirectionDropped
	default:
		return
	}

	entry := msgTableEntry{
		ID:        spa.GetIDGenerator().Generate(),
		Session:   t.session,
		Direction: direction,
		Time:      float64(t.clock.Now().UnixNano()) / 1e9,
	}

	if named, ok := ctx.Domain.(spa.Named); ok {
		entry.Component = named.Name()
	}

	if msg, ok := ctx.Item.(spa.Msg); ok {
		fillMsgFields(&entry, msg)
	}

	if reason, ok := ctx.Detail.(error); ok {
		entry.Reason = reason.Error()
	}

	t.recorder.InsertData(MsgTableName, entry)
}

func fillMsgFields(entry *msgTableEntry, msg spa.Msg) {
	meta := msg.Meta()

	entry.Opcode = msg.Opcode().String()
	entry.Src = meta.Src.String()
	entry.Dst = meta.Dst.String()
	entry.Dialog = int(meta.DialogID)

	size, _ := spa.FrameSize(msg.Opcode())
	entry.Bytes = size

	if c, ok := msg.(*spa.Courier); ok {
		entry.Bytes += int(c.ByteLength)
	}
}
