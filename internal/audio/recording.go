package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording opens filename and begins writing captured audio to it
// as WAV at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	bitDepth := e.cfg.Recording.BitDepth
	if bitDepth != 16 && bitDepth != 24 {
		bitDepth = 16
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	e.wavEncoder = wav.NewEncoder(file, int(e.cfg.Audio.SampleRate),
		bitDepth, 1, 1)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  int(e.cfg.Audio.SampleRate),
		},
		Data: make([]int, e.cfg.Audio.FramesPerBuffer),
	}

	atomic.StoreInt32(&e.isRecording, 1)

	return nil
}

// StopRecording finalizes the WAV header and closes the file. A no-op
// when not recording.
func (e *Engine) StopRecording() error {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&e.isRecording, 0)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// Close stops any active recording and the stream.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	return e.Stop()
}
