// Package player puts frames on the terminal, either live from the decoder or
// from a store of pre-rendered frames.
package player

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ClearSequence homes the cursor and erases the display.
const ClearSequence = "\x1b[H\x1b[J"

// Screen writes whole frames to a terminal. Each frame is a single flush.
type Screen struct {
	w *bufio.Writer
}

// NewScreen wraps w.
func NewScreen(w io.Writer) *Screen {
	return &Screen{w: bufio.NewWriterSize(w, 64*1024)}
}

// Show clears the screen and prints frame.
func (s *Screen) Show(frame string) error {
	if _, err := s.w.WriteString(ClearSequence); err != nil {
		return err
	}
	if _, err := s.w.WriteString(frame); err != nil {
		return err
	}
	return s.w.Flush()
}

// Clear erases the screen.
func (s *Screen) Clear() error {
	if _, err := s.w.WriteString(ClearSequence); err != nil {
		return err
	}
	return s.w.Flush()
}

// TerminalWarning describes why f may not display a grid of the given width well.
// It returns "" when f is a terminal at least width columns wide.
func TerminalWarning(f *os.File, width int) string {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return "output is not a terminal; control sequences will be written as-is"
	}
	cols, _, err := term.GetSize(fd)
	if err != nil {
		return ""
	}
	if width > cols {
		return fmt.Sprintf("output width %d is wider than the terminal (%d columns); lines will wrap", width, cols)
	}
	return ""
}
