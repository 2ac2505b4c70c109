package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/andresmejia3/ascivid/internal/types"
	"github.com/andresmejia3/ascivid/internal/utils"
)

// FFmpegSource reads raw RGBA frames from an ffmpeg pipe, with metadata from ffprobe.
type FFmpegSource struct {
	info   utils.VideoInfo
	cmd    *utils.SafeCommand
	out    io.ReadCloser
	cancel context.CancelFunc
	index  int

	once sync.Once
}

// OpenFFmpeg probes path and starts the decoder process.
func OpenFFmpeg(ctx context.Context, path string) (*FFmpegSource, error) {
	info, err := utils.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOpened, err)
	}

	dctx, cancel := context.WithCancel(ctx)
	cmd := utils.NewFFmpegRawDecoder(dctx, path)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create decoder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %w", ErrNotOpened, err)
	}

	return newFFmpegSource(info, cmd, out, cancel), nil
}

func newFFmpegSource(info utils.VideoInfo, cmd *utils.SafeCommand, out io.ReadCloser, cancel context.CancelFunc) *FFmpegSource {
	return &FFmpegSource{info: info, cmd: cmd, out: out, cancel: cancel}
}

func (s *FFmpegSource) FPS() float64 { return s.info.FPS }
func (s *FFmpegSource) Width() int   { return s.info.Width }
func (s *FFmpegSource) Height() int  { return s.info.Height }
func (s *FFmpegSource) Frames() int  { return s.info.Frames }

// Next reads exactly one frame. A short trailing read counts as end of stream.
func (s *FFmpegSource) Next(ctx context.Context) (types.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return types.RawFrame{}, err
	}

	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.out, img.Pix); err != nil {
		// ffmpeg dies with ctx, so a broken pipe after cancellation is an interrupt, not the end.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.RawFrame{}, ctxErr
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return types.RawFrame{}, io.EOF
		}
		return types.RawFrame{}, fmt.Errorf("decoder read failed: %w", err)
	}

	frame := types.RawFrame{Index: s.index, FPS: s.info.FPS, Image: img}
	s.index++
	return frame, nil
}

// Close stops ffmpeg and reaps it. Safe to call more than once.
func (s *FFmpegSource) Close() error {
	s.once.Do(func() {
		s.out.Close()
		if s.cancel != nil {
			s.cancel()
		}
		if s.cmd != nil && s.cmd.Process != nil {
			// Killed by our own cancel, so the exit status carries no information.
			_ = s.cmd.Wait()
		}
	})
	return nil
}
