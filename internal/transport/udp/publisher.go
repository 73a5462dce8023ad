// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "chordscope/internal/log"
	"chordscope/internal/tuner"
)

// MaxPacketBins caps how many spectrum bins a packet carries so packets
// stay well under the UDP datagram limit.
const MaxPacketBins = 2048

// UDPPublisher periodically snapshots the analyzer, packs the low end of
// the magnitude spectrum plus the pitch estimate into a binary packet,
// and sends it over UDP using a UDPSender. It runs in a separate
// goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender      // The underlying UDP sender instance.
	analyzer *tuner.Analyzer // Source of magnitudes and pitch estimates.
	interval time.Duration   // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Pre-allocated buffers to reduce allocations in the hot path.
	magBuffer    []int16       // Receives the full magnitude spectrum.
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, analyzer *tuner.Analyzer) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("UDPPublisher: analyzer cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond // Default to ~60Hz if invalid
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	bins := analyzer.Size() / 2
	if bins > MaxPacketBins {
		bins = MaxPacketBins
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Packet Bins: %d)", interval, bins)

	return &UDPPublisher{
		sender:       sender,
		analyzer:     analyzer,
		interval:     interval,
		magBuffer:    make([]int16, analyzer.Size()),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process.
// It launches a goroutine that ticks at the configured interval, calling
// buildAndSendPacket on each tick until Stop is called.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	// Prevent starting if already running
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	// Initialize resources for this run
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{} // Reset stopOnce for this run

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock() // Unlock before starting the potentially long-running goroutine

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock() // Unlock before waiting

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+------------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description              |
|-------------------|----------------|--------------|--------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing |
| Timestamp         | int64          | 8            | Nanoseconds since epoch  |
| Pitch Class       | uint8          | 1            | 1..12 from A, 0 = none   |
| Pitch Cents       | float32        | 4            | Deviation, 0 when no pitch|
| Bin Count         | uint16         | 2            | Number of magnitudes (N) |
| Magnitudes        | []int16        | N * 2        | Low-end spectrum bins    |
+------------------------------------------------------------------------------+
*/

// Packet is the decoded form of one published datagram.
type Packet struct {
	Seq        uint32
	Timestamp  int64
	PitchClass uint8
	PitchCents float32
	Magnitudes []int16
}

// packetHeaderSize is the fixed-size prefix before the magnitude payload.
const packetHeaderSize = 4 + 8 + 1 + 4 + 2

// DecodePacket parses a datagram produced by the publisher. Receivers can
// use it as a reference decoder.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < packetHeaderSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(data))
	}

	r := bytes.NewReader(data)
	var pkt Packet
	var count uint16
	for _, field := range []any{&pkt.Seq, &pkt.Timestamp, &pkt.PitchClass, &pkt.PitchCents, &count} {
		if err := binary.Read(r, binary.BigEndian, field); err != nil {
			return Packet{}, fmt.Errorf("failed to decode packet header: %w", err)
		}
	}

	if r.Len() != int(count)*2 {
		return Packet{}, fmt.Errorf("payload length %d does not match bin count %d", r.Len(), count)
	}
	pkt.Magnitudes = make([]int16, count)
	if err := binary.Read(r, binary.BigEndian, pkt.Magnitudes); err != nil {
		return Packet{}, fmt.Errorf("failed to decode magnitudes: %w", err)
	}
	return pkt, nil
}

// buildAndSendPacket is the core function executed on each ticker interval.
// It snapshots the analyzer state, packs it into the binary layout above,
// and sends the result using the UDPSender.
func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.analyzer.MagnitudesInto(p.magBuffer); err != nil {
		applog.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return // Skip sending this packet
	}

	var pitchClass uint8
	var pitchCents float32
	if pitch, err := p.analyzer.DetectPitch(); err != nil {
		applog.Errorf("UDPPublisher: Error detecting pitch: %v", err)
	} else if pitch.OK {
		pitchClass = uint8(pitch.Class)
		pitchCents = float32(pitch.Cents)
	}

	bins := len(p.magBuffer) / 2
	if bins > MaxPacketBins {
		bins = MaxPacketBins
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	// Reset the reusable buffer before writing new packet data.
	p.packetBuffer.Reset()

	var err error
	for _, field := range []any{p.sequenceNum, timestamp, pitchClass, pitchCents, uint16(bins), p.magBuffer[:bins]} {
		if err = binary.Write(p.packetBuffer, binary.BigEndian, field); err != nil {
			break
		}
	}
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return // Skip sending this packet
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err == nil {
		// Log successful sends only at Debug level to avoid flooding logs.
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
