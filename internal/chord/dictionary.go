// SPDX-License-Identifier: MIT
/*
Package chord matches sets of detected pitch classes against a dictionary
of chord shapes. Shapes are described once in root position on A and
mechanically transposed to all twelve roots the first time the dictionary
is used; the resulting table is immutable afterwards.
*/
package chord

import (
	"errors"
	"fmt"
	"sync"

	"chordscope/internal/analysis"
	applog "chordscope/internal/log"
)

const (
	// MaxNotes is the largest number of notes in any dictionary shape.
	MaxNotes = 5
	numRoots = 12
)

var (
	// ErrBadTransposition is returned for semitone shifts outside [-11, 11].
	ErrBadTransposition = errors.New("transpose semitones must be between -11 and 11")
	// ErrNoNotes is returned when an operation is attempted on an empty
	// note set.
	ErrNoNotes = errors.New("at least one input note is required")
)

// Chord is an ordered set of pitch classes with a display name. Notes[0]
// is the root.
type Chord struct {
	Notes   []int
	Quality string // shape name without the root, e.g. "Maj7"
	Name    string // full display name, e.g. "A Maj7"
}

// rootShapes are the dictionary templates in root position on A (pitch
// class 1). Order matters only for readability; matching considers every
// transposition equally.
var rootShapes = []Chord{
	{Notes: []int{1, 5, 8, 3}, Quality: "add9"},
	{Notes: []int{1, 5, 8, 12}, Quality: "Maj7"},
	{Notes: []int{1, 4, 8, 11}, Quality: "min7"},
	{Notes: []int{1, 5, 8, 11}, Quality: "dom7"},
	{Notes: []int{1, 4, 8, 12}, Quality: "minMaj7"},
	{Notes: []int{1, 4, 7}, Quality: "dim"},
	{Notes: []int{1, 6, 8}, Quality: "sus4"},
	{Notes: []int{1, 3, 8}, Quality: "sus2"},
	{Notes: []int{1, 5, 8}, Quality: "Maj"},
	{Notes: []int{1, 4, 8}, Quality: "min"},
	{Notes: []int{1, 8}, Quality: "5"},
}

var (
	tableOnce sync.Once
	table     []Chord // all shapes at all twelve roots
)

// Contains reports whether the chord's note set includes every input note.
func (c Chord) Contains(notes []int) bool {
	for _, want := range notes {
		found := false
		for _, n := range c.Notes {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Transpose shifts every note of c by the given number of semitones,
// wrapping pitch classes into [1,12], and regenerates the display name
// from the new root.
func Transpose(c Chord, semitones int) (Chord, error) {
	if len(c.Notes) == 0 {
		return Chord{}, ErrNoNotes
	}
	if semitones < -11 || semitones > 11 {
		return Chord{}, fmt.Errorf("%w: got %d", ErrBadTransposition, semitones)
	}

	out := Chord{
		Notes:   make([]int, len(c.Notes)),
		Quality: c.Quality,
	}
	for i, n := range c.Notes {
		out.Notes[i] = ((n+semitones-1)%12+12)%12 + 1
	}

	root, err := analysis.PitchName(out.Notes[0])
	if err != nil {
		return Chord{}, err
	}
	out.Name = root + " " + out.Quality
	return out, nil
}

// initTable builds the full 12-root transposition table exactly once.
func initTable() {
	tableOnce.Do(func() {
		table = make([]Chord, 0, len(rootShapes)*numRoots)
		for _, shape := range rootShapes {
			for s := 0; s < numRoots; s++ {
				c, err := Transpose(shape, s)
				if err != nil {
					// Shapes and shifts are static; a failure here is a
					// programming error.
					panic(err)
				}
				table = append(table, c)
			}
		}
		applog.Debugf("Chord: dictionary initialized with %d entries", len(table))
	})
}

// Identify returns the dictionary chord that best explains the input
// pitch classes: among all chords whose note sets contain every input
// note, the one with the fewest notes wins, and ties go to the chord
// whose root equals the first input note. The boolean is false when no
// chord contains all input notes; that outcome is a valid result, not an
// error.
func Identify(notes []int) (Chord, bool, error) {
	if len(notes) == 0 {
		return Chord{}, false, ErrNoNotes
	}
	initTable()

	best := -1
	minSize := MaxNotes + 1
	for i, c := range table {
		if !c.Contains(notes) {
			continue
		}
		if len(c.Notes) < minSize ||
			(len(c.Notes) == minSize && c.Notes[0] == notes[0]) {
			best = i
			minSize = len(c.Notes)
		}
	}

	if best < 0 {
		return Chord{}, false, nil
	}
	return table[best], true, nil
}
