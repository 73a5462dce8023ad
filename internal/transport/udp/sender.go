package udp

import (
	"fmt"
	"io"
	"net"
	"sync"

	applog "chordscope/internal/log"
)

// UDPSender owns the connection the magnitude publisher writes packets
// to. The mutex covers the close/write race; the publisher itself sends
// from a single goroutine.
type UDPSender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewUDPSender dials the "host:port" target, e.g. "127.0.0.1:9090".
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDP Sender: Connection established to %s", conn.RemoteAddr().String())

	return &UDPSender{conn: conn}, nil
}

// Send transmits data as one datagram. Sending on a closed sender is an
// error.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("UDP sender is closed")
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		applog.Warnf("UDP Sender: Error sending packet: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close shuts the connection down. Idempotent.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn == nil {
		return nil
	}
	applog.Infof("UDP Sender: Closing connection to %s", s.conn.RemoteAddr().String())
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ io.Closer = (*UDPSender)(nil)
