package hooks

import (
	"sync"
	"sync/atomic"

	"xcodex.io/hookcore/envelope"
)

// notifyDeprecationMessage is emitted once per process when the superseded
// top-level notify command list is still configured.
const notifyDeprecationMessage = "the `notify` setting is deprecated; " +
	"register a notification hook instead"

// DeprecationNotice tracks the one-time legacy notify warning. The legacy
// path performs nothing else and takes no further behavior.
type DeprecationNotice struct {
	once  sync.Once
	fired atomic.Bool
}

// Payload returns a notification payload announcing the deprecation the
// first time it is called with a configured notify list, and nil on every
// other call.
func (d *DeprecationNotice) Payload(notifyArgv []string) *envelope.Payload {
	if len(notifyArgv) == 0 {
		return nil
	}
	var p *envelope.Payload
	d.once.Do(func() {
		p = envelope.New(envelope.EventNotification, HookEventName(envelope.EventNotification))
		p.NotificationType = "deprecation"
		p.Message = notifyDeprecationMessage
		d.fired.Store(true)
	})
	return p
}

// Fired reports whether the notice was already emitted.
func (d *DeprecationNotice) Fired() bool {
	return d.fired.Load()
}
