package spa

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RegistrationState is the progress of the hello handshake with the subnet
// manager.
type RegistrationState int

// States of the hello handshake.
const (
	Unregistered RegistrationState = iota
	HelloSent
	Registered
)

func (s RegistrationState) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case HelloSent:
		return "hello-sent"
	case Registered:
		return "registered"
	default:
		return "unknown"
	}
}

// RegistrationState returns where the hello handshake stands.
func (c *ComponentBase) RegistrationState() RegistrationState {
	c.regLock.Lock()
	defer c.regLock.Unlock()

	return c.regState
}

// Register performs the hello handshake and waits until the subnet manager
// acknowledges it or ctx is done. Calling it again after the hello was sent
// only waits.
func (c *ComponentBase) Register(ctx context.Context) error {
	c.regLock.Lock()
	if c.regState != Unregistered {
		c.regLock.Unlock()
		return c.waitRegistered(ctx)
	}
	c.regState = HelloSent
	c.regLock.Unlock()

	hello := &Hello{
		MsgMeta:   MsgMeta{Src: c.address, Dst: c.managerAddress},
		Requester: c.address,
		Target:    c.managerAddress,
	}

	if err := c.comm.Register(hello, c); err != nil {
		c.regLock.Lock()
		if c.regState == HelloSent {
			c.regState = Unregistered
		}
		c.regLock.Unlock()

		return fmt.Errorf("register %s with %s: %w",
			c.address, c.managerAddress, err)
	}

	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosMsgSend, Item: hello})
	c.logger.Debug("hello sent", zap.Stringer("manager", c.managerAddress))

	return c.waitRegistered(ctx)
}

func (c *ComponentBase) waitRegistered(ctx context.Context) error {
	select {
	case <-c.registered:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for registration of %s: %w",
			c.address, ctx.Err())
	}
}

func (c *ComponentBase) handleLocalAck(ack *LocalAck) {
	c.regLock.Lock()
	if c.regState == Registered {
		c.regLock.Unlock()
		c.logger.Debug("duplicate local ack ignored")

		return
	}

	c.regState = Registered
	close(c.registered)
	c.regLock.Unlock()

	if ack.Assigned != c.address && !ack.Assigned.IsNull() {
		c.logger.Warn("manager acknowledged a different address",
			zap.Stringer("assigned", ack.Assigned))
	}

	c.logger.Info("registered", zap.Stringer("manager", ack.Src))
	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosRegistered, Item: ack})
}
