// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	applog "chordscope/internal/log"
)

// SnapshotFunc produces the current analysis state for publication. The
// publisher fills in Seq and Timestamp itself.
type SnapshotFunc func() Snapshot

// Publisher periodically builds a Snapshot and fans it out to every
// configured transport. It runs in a separate goroutine managed by Start
// and Stop.
type Publisher struct {
	build      SnapshotFunc
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker  // Ticker that triggers publications.
	doneChan chan struct{} // Signals the publisher goroutine to stop.
	stopOnce sync.Once     // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	seq uint32 // Monotonically increasing sequence number.
}

// NewPublisher creates a Publisher. An interval <= 0 defaults to 33ms.
func NewPublisher(interval time.Duration, build SnapshotFunc, transports ...Transport) (*Publisher, error) {
	if build == nil {
		return nil, fmt.Errorf("Publisher: snapshot builder cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("Publisher: at least one transport is required")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &Publisher{
		build:      build,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start begins periodic publication. Safe to call more than once;
// subsequent calls are no-ops while running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("Publisher: goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				applog.Infof("Publisher: goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Safe to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("Publisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// publish builds one snapshot and sends it to every transport. Send
// errors are logged, not returned; one slow transport must not starve
// the others.
func (p *Publisher) publish() {
	snap := p.build()
	p.seq++
	snap.Seq = p.seq
	snap.Timestamp = time.Now().UnixNano()

	for _, t := range p.transports {
		if err := t.Send(snap); err != nil {
			applog.Warnf("Publisher: transport send failed: %v", err)
		}
	}
}

// Close implements io.Closer by stopping the publisher.
func (p *Publisher) Close() error {
	return p.Stop()
}
