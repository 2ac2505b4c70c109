// Package decoder is the video-frame source. Decoding itself is delegated to
// ffmpeg, either through Vidio or through a raw ffmpeg pipe.
package decoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/ascivid/internal/config"
	"github.com/andresmejia3/ascivid/internal/types"
	"github.com/andresmejia3/ascivid/internal/utils"
)

// ErrNotOpened is returned when the video cannot be opened for decoding.
var ErrNotOpened = errors.New("could not open video file")

// Source yields decoded frames in order. Next returns io.EOF once the video is exhausted.
type Source interface {
	FPS() float64
	Width() int
	Height() int
	// Frames is the container's frame count, or 0 when unknown.
	Frames() int
	Next(ctx context.Context) (types.RawFrame, error)
	Close() error
}

// Open opens path with the requested backend. Failure is fatal for the run; it is never retried.
func Open(ctx context.Context, path, backend string) (Source, error) {
	if err := utils.CheckInputFile(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOpened, err)
	}

	switch backend {
	case config.DecoderVidio, "":
		return OpenVidio(path)
	case config.DecoderFFmpeg:
		return OpenFFmpeg(ctx, path)
	default:
		return nil, fmt.Errorf("unknown decoder backend %q", backend)
	}
}
