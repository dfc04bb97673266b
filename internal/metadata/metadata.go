// Package metadata reads capture location and time from recording containers.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"plate-resolver/internal/domain/plate"
)

// Extractor returns whatever capture metadata path carries. Absent fields are
// nil; an error means the container could not be read at all.
type Extractor interface {
	Extract(ctx context.Context, path string) (*plate.Capture, error)
}

// FFprobe reads QuickTime/MP4 format tags with ffprobe.
type FFprobe struct {
	Path string
}

func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{Path: path}
}

type probeFormat struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
}

func (f *FFprobe) Extract(ctx context.Context, path string) (*plate.Capture, error) {
	out, err := exec.CommandContext(ctx, f.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	).Output()
	if err != nil {
		return &plate.Capture{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*plate.Capture, error) {
	var probe probeFormat
	if err := json.Unmarshal(out, &probe); err != nil {
		return &plate.Capture{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	tags := make(map[string]string, len(probe.Format.Tags))
	for k, v := range probe.Format.Tags {
		tags[strings.ToLower(k)] = v
	}

	c := &plate.Capture{}
	for _, key := range []string{"com.apple.quicktime.location.iso6709", "location"} {
		if v, ok := tags[key]; ok {
			if lat, lon, err := ParseISO6709(v); err == nil {
				c.Latitude, c.Longitude = &lat, &lon
				break
			}
		}
	}
	for _, key := range []string{"com.apple.quicktime.creationdate", "creation_time"} {
		if v, ok := tags[key]; ok {
			if ts, err := ParseTimestamp(v); err == nil {
				c.CapturedAt = &ts
				break
			}
		}
	}
	return c, nil
}

var (
	ErrNoLocation = errors.New("no ISO 6709 coordinates")
	iso6709       = regexp.MustCompile(`^([+-]\d+(?:\.\d+)?)([+-]\d+(?:\.\d+)?)`)
)

// ParseISO6709 reads decimal-degree coordinates such as "+37.3317-122.0302+012.345/".
func ParseISO6709(s string) (lat, lon float64, err error) {
	m := iso6709.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoLocation, s)
	}
	if lat, err = strconv.ParseFloat(m[1], 64); err != nil {
		return 0, 0, err
	}
	if lon, err = strconv.ParseFloat(m[2], 64); err != nil {
		return 0, 0, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("%w: out of range %q", ErrNoLocation, s)
	}
	return lat, lon, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05",
}

// ParseTimestamp accepts the creation time layouts QuickTime and MP4 writers use.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
