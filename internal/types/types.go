package types

import "image"

// RawFrame is a single decoded video frame.
// It has exactly one owner at a time: the decoder hands it to the feeder,
// the feeder hands it to a worker (or the live scheduler), and nobody keeps it after that.
type RawFrame struct {
	Index int
	FPS   float64
	Image *image.RGBA
}

// Width returns the frame width in pixels.
func (f RawFrame) Width() int { return f.Image.Rect.Dx() }

// Height returns the frame height in pixels.
func (f RawFrame) Height() int { return f.Image.Rect.Dy() }

// FrameTask represents a single frame sent to a worker for rendering.
type FrameTask struct {
	Index int
	Frame RawFrame
	stop  bool
}

// Stop is the shutdown sentinel. A worker that dequeues it exits.
var Stop = FrameTask{Index: -1, stop: true}

// IsStop reports whether the task is the shutdown sentinel.
func (t FrameTask) IsStop() bool { return t.stop }
