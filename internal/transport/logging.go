package transport

import (
	applog "chordscope/internal/log"
)

// LoggingTransport implements the Transport interface by logging data to the console.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data at debug level.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("LoggingTransport: Received (%T): %+v", data, data)
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
