package notify

import "context"

// Channel is a transport-agnostic message sender. The scheduling core only
// depends on this interface; vendor wiring stays behind it.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient, message string) error
}

// NoopChannel acknowledges every send without delivering anything. Useful in
// dev environments with no gateways configured.
type NoopChannel struct {
	ChannelName string
}

func (c *NoopChannel) Name() string {
	if c.ChannelName != "" {
		return c.ChannelName
	}
	return "noop"
}

func (c *NoopChannel) Send(_ context.Context, _, _ string) error {
	return nil
}
