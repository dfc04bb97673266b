package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	bmpHeaderSize = 14
	// maxFrameBytes rejects corrupt size fields before allocating.
	maxFrameBytes = 256 << 20
)

var ErrBadFrame = errors.New("invalid frame in decoder stream")

// FFmpeg decodes recordings with an ffmpeg subprocess writing a BMP image2pipe
// stream to stdout. The frame count comes from ffprobe.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	log         zerolog.Logger
}

func NewFFmpeg(ffmpegPath, ffprobePath string, log zerolog.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, log: log}
}

func (f *FFmpeg) Open(ctx context.Context, path string) (Handle, error) {
	count, err := f.probeFrameCount(ctx, path)
	if err != nil {
		f.log.Warn().Err(err).Str("path", path).Msg("could not read frame count")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "bmp",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	return &ffmpegHandle{
		cmd:    cmd,
		cancel: cancel,
		stderr: &stderr,
		frames: newBMPReader(stdout),
		count:  count,
	}, nil
}

type ffprobeStreams struct {
	Streams []struct {
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

func (f *FFmpeg) probeFrameCount(ctx context.Context, path string) (int, error) {
	out, err := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames,nb_read_packets",
		"-of", "json",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFrameCount(out)
}

func parseFrameCount(out []byte) (int, error) {
	var probe ffprobeStreams
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return 0, errors.New("no video stream")
	}
	s := probe.Streams[0]
	for _, v := range []string{s.NbFrames, s.NbReadPackets} {
		if v == "" || v == "N/A" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("frame count %q: %w", v, err)
		}
		return n, nil
	}
	return 0, nil
}

type ffmpegHandle struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *bytes.Buffer
	frames *bmpReader
	count  int
	next   int
	done   bool
}

func (h *ffmpegHandle) FrameCount() int { return h.count }

func (h *ffmpegHandle) Next() (Frame, bool, error) {
	if h.done {
		return Frame{}, false, nil
	}
	data, err := h.frames.read()
	if ok, err := h.settle(err); !ok {
		return Frame{}, false, err
	}
	f := Frame{Index: h.next, Data: data}
	h.next++
	return f, true, nil
}

func (h *ffmpegHandle) Skip() (bool, error) {
	if h.done {
		return false, nil
	}
	if ok, err := h.settle(h.frames.skip()); !ok {
		return false, err
	}
	h.next++
	return true, nil
}

// settle turns a reader error into the handle's result. At a clean end of
// stream it reaps ffmpeg and reports its failure, if any.
func (h *ffmpegHandle) settle(err error) (bool, error) {
	if errors.Is(err, io.EOF) {
		h.done = true
		if werr := h.cmd.Wait(); werr != nil {
			return false, fmt.Errorf("ffmpeg: %w: %s", werr, strings.TrimSpace(h.stderr.String()))
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (h *ffmpegHandle) Close() error {
	h.cancel()
	if !h.done {
		h.done = true
		// The process was killed; its exit status carries no information.
		_ = h.cmd.Wait()
	}
	return nil
}

// bmpReader splits a concatenated stream of BMP files using the size field
// of each file header.
type bmpReader struct {
	r *bufio.Reader
}

func newBMPReader(r io.Reader) *bmpReader {
	return &bmpReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// header reads and checks the next file header and returns the file size.
// io.EOF is returned only on a clean boundary between files.
func (b *bmpReader) header(buf *[bmpHeaderSize]byte) (int, error) {
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: truncated header", ErrBadFrame)
		}
		return 0, err
	}
	if buf[0] != 'B' || buf[1] != 'M' {
		return 0, fmt.Errorf("%w: missing BM signature", ErrBadFrame)
	}
	size := binary.LittleEndian.Uint32(buf[2:6])
	if size < bmpHeaderSize || size > maxFrameBytes {
		return 0, fmt.Errorf("%w: size %d", ErrBadFrame, size)
	}
	return int(size), nil
}

// skip discards the next BMP file without buffering it.
func (b *bmpReader) skip() error {
	var header [bmpHeaderSize]byte
	size, err := b.header(&header)
	if err != nil {
		return err
	}
	if _, err := b.r.Discard(size - bmpHeaderSize); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: truncated body: %w", ErrBadFrame, err)
	}
	return nil
}

// read returns the next whole BMP file. io.EOF is returned only on a clean
// boundary between files.
func (b *bmpReader) read() ([]byte, error) {
	var header [bmpHeaderSize]byte
	size, err := b.header(&header)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	copy(data, header[:])
	if _, err := io.ReadFull(b.r, data[bmpHeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: truncated body: %w", ErrBadFrame, err)
	}
	return data, nil
}
