package decoder

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	vidio "github.com/AlexEidt/Vidio"
	"github.com/andresmejia3/ascivid/internal/types"
)

// VidioSource decodes through Vidio, which runs ffmpeg and hands back RGBA frames.
type VidioSource struct {
	video *vidio.Video
	index int
	once  sync.Once
}

// OpenVidio opens path for decoding.
func OpenVidio(path string) (*VidioSource, error) {
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotOpened, err)
	}
	if video.Width() <= 0 || video.Height() <= 0 || video.FPS() <= 0 {
		video.Close()
		return nil, fmt.Errorf("%w: invalid stream %dx%d @ %.2f fps", ErrNotOpened, video.Width(), video.Height(), video.FPS())
	}
	return &VidioSource{video: video}, nil
}

func (s *VidioSource) FPS() float64 { return s.video.FPS() }
func (s *VidioSource) Width() int   { return s.video.Width() }
func (s *VidioSource) Height() int  { return s.video.Height() }
func (s *VidioSource) Frames() int  { return s.video.Frames() }

// Next copies the decoder's shared frame buffer into a fresh image so the frame can change hands.
func (s *VidioSource) Next(ctx context.Context) (types.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return types.RawFrame{}, err
	}
	if !s.video.Read() {
		return types.RawFrame{}, io.EOF
	}

	w, h := s.video.Width(), s.video.Height()
	buf := s.video.FrameBuffer()
	if len(buf) != w*h*4 {
		return types.RawFrame{}, fmt.Errorf("unexpected frame buffer size %d for %dx%d RGBA", len(buf), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, buf)

	frame := types.RawFrame{Index: s.index, FPS: s.video.FPS(), Image: img}
	s.index++
	return frame, nil
}

// Close releases the ffmpeg process. Safe to call more than once.
func (s *VidioSource) Close() error {
	s.once.Do(s.video.Close)
	return nil
}
