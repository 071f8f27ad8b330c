package fs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"

	"tokcount/internal/port"
)

const progressChunk = 4 << 10

// Reader loads whole text files into memory.
type Reader struct {
	progress io.Writer // nil disables the progress bar
}

// NewReader creates a reader. A non-nil progress writer receives a byte
// progress bar while the file is read.
func NewReader(progress io.Writer) *Reader {
	return &Reader{progress: progress}
}

// ReadFile reads the entire file at path and returns it as text.
func (r *Reader) ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))

	var dst io.Writer = &buf
	if r.progress != nil && info.Size() > 0 {
		bar := newBar(r.progress, info.Size(), filepath.Base(path))
		defer bar.Close()
		dst = io.MultiWriter(&buf, bar)
	}

	// Hide *os.File's WriterTo so CopyBuffer advances the bar per chunk.
	src := struct{ io.Reader }{f}
	if _, err := io.CopyBuffer(dst, src, make([]byte, progressChunk)); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(buf.Bytes()) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", port.ErrInvalidText, path)
	}

	return normalizeNewlines(buf.String()), nil
}

// normalizeNewlines turns CRLF and lone CR line endings into LF.
func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func newBar(w io.Writer, size int64, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Reading[reset] %s", name)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}

// ReadFile reads path without progress output.
func ReadFile(path string) (string, error) {
	return NewReader(nil).ReadFile(path)
}
