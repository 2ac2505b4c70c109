package decoder

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync/atomic"

	"github.com/andresmejia3/ascivid/internal/types"
)

// StaticSource serves frames held in memory. Used for synthetic input and tests.
type StaticSource struct {
	frames []*image.RGBA
	fps    float64
	next   int
	closed atomic.Bool
}

// NewStatic returns a source over frames at the given rate, which must be positive.
func NewStatic(frames []*image.RGBA, fps float64) (*StaticSource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %.2f", ErrNotOpened, fps)
	}
	return &StaticSource{frames: frames, fps: fps}, nil
}

func (s *StaticSource) FPS() float64 { return s.fps }
func (s *StaticSource) Frames() int  { return len(s.frames) }

func (s *StaticSource) Width() int {
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[0].Rect.Dx()
}

func (s *StaticSource) Height() int {
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[0].Rect.Dy()
}

func (s *StaticSource) Next(ctx context.Context) (types.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return types.RawFrame{}, err
	}
	if s.closed.Load() || s.next >= len(s.frames) {
		return types.RawFrame{}, io.EOF
	}
	frame := types.RawFrame{Index: s.next, FPS: s.fps, Image: s.frames[s.next]}
	s.next++
	return frame, nil
}

func (s *StaticSource) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (s *StaticSource) Closed() bool { return s.closed.Load() }
