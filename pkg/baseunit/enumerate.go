package baseunit

import (
	"context"
	"errors"
	"time"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
	"github.com/lifesos-protocol/lifesos-go/pkg/session"
	"github.com/lifesos-protocol/lifesos-go/pkg/transport"
)

// enumerate walks the base unit's initial state: firmware version,
// operation mode, delays, every enrolled device per category and all
// sixteen switches. Run on every (re)connect so the registry never
// trusts stale cached state.
func (c *Controller) enumerate(ctx context.Context) error {
	if _, err := c.execRetry(ctx, protocol.GetROMVersionCommand{}); err != nil {
		return err
	}
	if _, err := c.execRetry(ctx, protocol.GetOpModeCommand{}); err != nil {
		return err
	}
	if _, err := c.execRetry(ctx, protocol.GetExitDelayCommand{}); err != nil {
		return err
	}
	if _, err := c.execRetry(ctx, protocol.GetEntryDelayCommand{}); err != nil {
		return err
	}

	for _, category := range protocol.Categories {
		if category.MaxDevices == 0 {
			continue
		}
		for index := 0; index < category.MaxDevices; index++ {
			resp, err := c.execRetry(ctx, protocol.GetDeviceByIndexCommand{
				Category: category,
				Index:    index,
			})
			if err != nil {
				return err
			}
			if _, notFound := resp.(*protocol.DeviceNotFoundResponse); notFound {
				break
			}
		}
	}

	for _, number := range protocol.AllSwitches {
		if _, err := c.execRetry(ctx, protocol.GetSwitchCommand{Number: number}); err != nil {
			return err
		}
	}

	return nil
}

// execRetry executes a command, retrying transient failures.
func (c *Controller) execRetry(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	var lastErr error
	for attempt := 0; attempt < enumerateRetries; attempt++ {
		resp, err := c.exec(ctx, cmd)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil ||
			errors.Is(err, session.ErrSessionClosed) ||
			errors.Is(err, session.ErrCancelled) ||
			errors.Is(err, transport.ErrNotConnected) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// exec runs a command on the current session and folds its response
// into the controller state.
func (c *Controller) exec(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	c.sessMu.RLock()
	dispatcher := c.dispatcher
	c.sessMu.RUnlock()
	if dispatcher == nil {
		return nil, transport.ErrNotConnected
	}

	resp, err := dispatcher.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	c.applyResponse(resp, time.Now())
	return resp, nil
}
