package store

import "github.com/jonboulle/clockwork"

type options struct {
	hub      *Hub
	notifier Notifier
	clock    clockwork.Clock
}

type Option func(*options)

// WithHub shares a subscriber hub, e.g. with a change-feed relay.
func WithHub(hub *Hub) Option {
	return func(o *options) {
		o.hub = hub
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.hub == nil {
		o.hub = NewHub()
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	return o
}
