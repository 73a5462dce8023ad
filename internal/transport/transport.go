package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Snapshot is one publication of the analysis state: the most recent
// pitch and chord estimates plus the capture level. Magnitude data
// travels separately over the binary UDP path.
type Snapshot struct {
	Seq       uint32  `json:"seq"`
	Timestamp int64   `json:"timestamp"` // Nanoseconds since epoch.
	Level     float64 `json:"level"`     // Peak capture level in [0, 1].

	PitchOK    bool    `json:"pitch_ok"`
	PitchFreq  float64 `json:"pitch_freq,omitempty"`
	PitchName  string  `json:"pitch_name,omitempty"`
	PitchCents float64 `json:"pitch_cents,omitempty"`

	ChordOK    bool   `json:"chord_ok"`
	ChordName  string `json:"chord_name,omitempty"`
	ChordNotes []int  `json:"chord_notes,omitempty"`
}
