package publisher

// Publisher announces newly saved posts to downstream consumers
type Publisher interface {
	// Publish publishes a message under a site key
	Publish(siteKey string, message []byte) error

	// TrimStream trims the stream to the configured maximum length
	TrimStream() error

	// Close closes the publisher connection
	Close() error
}

// Noop discards everything; used when no Redis address is configured.
type Noop struct{}

func (Noop) Publish(string, []byte) error { return nil }
func (Noop) TrimStream() error            { return nil }
func (Noop) Close() error                 { return nil }
