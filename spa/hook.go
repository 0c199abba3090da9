package spa

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	// Domain is the hookable object that is raising this hook.
	Domain Hookable

	// Pos identifies where the hook is firing from.
	Pos *HookPos

	// Item carries the primary subject, usually a Msg.
	Item any

	// Detail holds optional auxiliary data.
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook. Hooks must be registered before the
	// hookable object starts handling messages.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// InvokeHook triggers the registered Hooks.
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// Hook positions raised by components.
var (
	// HookPosMsgSend marks a message handed to the communicator.
	HookPosMsgSend = &HookPos{Name: "Msg Send"}

	// HookPosMsgRecv marks a message accepted for dispatch.
	HookPosMsgRecv = &HookPos{Name: "Msg Recv"}

	// HookPosMsgDropped marks a message that was ignored. Detail holds the
	// reason as an error.
	HookPosMsgDropped = &HookPos{Name: "Msg Dropped"}

	// HookPosSubscriberAdded fires after a subscription request was
	// processed. Item is the Subscriber, Detail is true when it was inserted.
	HookPosSubscriberAdded = &HookPos{Name: "Subscriber Added"}

	// HookPosPublishTick fires at the start of every publish tick. Item is the
	// cycle number, Detail the number of subscribers seen by the tick.
	HookPosPublishTick = &HookPos{Name: "Publish Tick"}

	// HookPosRegistered fires when the subnet manager acknowledged the hello.
	HookPosRegistered = &HookPos{Name: "Registered"}
)

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase object.
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hookList = make([]Hook, 0)

	return h
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if existing == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
