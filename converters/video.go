package converters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HugeFrog24/stimconv/internal/media"
	"github.com/HugeFrog24/stimconv/stim"
)

var (
	_ Converter = (*VideoToAudioConverter)(nil)
	_ Converter = (*FrameSamplingConverter)(nil)
)

// VideoToAudioConverter extracts the audio track of a video as 16 kHz mono
// WAV. The file is written next to the video and keeps the video's stem:
// small.mp4 becomes small.wav. With OutputDir set, videos from different
// directories share one folder, so the file name also carries a prefix of the
// video fingerprint (small_3f2a9c01b7de.wav). The stimulus name is
// "small.mp4_small.wav" either way.
type VideoToAudioConverter struct {
	OutputDir string
	// Extractor defaults to RealAudioExtractor.
	Extractor AudioExtractor
}

func (c *VideoToAudioConverter) Name() string          { return "VideoToAudioConverter" }
func (c *VideoToAudioConverter) Input() stim.Modality  { return stim.Video }
func (c *VideoToAudioConverter) Output() stim.Modality { return stim.Audio }

func (c *VideoToAudioConverter) Config() any {
	return struct {
		OutputDir string `msgpack:"output_dir"`
	}{c.OutputDir}
}

func (c *VideoToAudioConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	videoFile := s.Filename()
	if videoFile == "" {
		return nil, fmt.Errorf("converters: %s: %s has no file", c.Name(), s.Name())
	}

	stem := strings.TrimSuffix(filepath.Base(videoFile), filepath.Ext(videoFile))
	audioFile := filepath.Join(filepath.Dir(videoFile), stem+".wav")
	if c.OutputDir != "" {
		audioFile = filepath.Join(c.OutputDir, stem+"_"+shortFingerprint(s)+".wav")
	}

	extractor := c.Extractor
	if extractor == nil {
		extractor = RealAudioExtractor{}
	}
	hasAudio, err := extractor.ExtractAudio(ctx, videoFile, audioFile)
	if err != nil {
		return nil, fmt.Errorf("failed to extract audio: %w", err)
	}
	if !hasAudio {
		return nil, fmt.Errorf("converters: %s: %w", videoFile, ErrNoAudioStream)
	}

	opts := derivedOpts(c, s, stem+".wav", stim.Step{})
	return stim.NewAudioStim(audioFile, media.SampleRate, opts...), nil
}

func shortFingerprint(s stim.Stim) string {
	fp := s.Fingerprint()
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fp
}

// FrameSamplingConverter selects a subset of a video's frames. Exactly one of
// Every and Hertz must be set.
//
// Applied to a DerivedVideoStim it narrows the existing selection; the result
// still indexes frames of the original video and its history gains one row.
type FrameSamplingConverter struct {
	// Every keeps every n-th frame of the current selection.
	Every int `msgpack:"every,omitempty"`
	// Hertz keeps frames at the given rate, measured against the original
	// frame rate.
	Hertz float64 `msgpack:"hertz,omitempty"`
}

func (c *FrameSamplingConverter) Name() string          { return "FrameSamplingConverter" }
func (c *FrameSamplingConverter) Input() stim.Modality  { return stim.Video }
func (c *FrameSamplingConverter) Output() stim.Modality { return stim.Video }
func (c *FrameSamplingConverter) Config() any           { return *c }

func (c *FrameSamplingConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}

	var (
		source *stim.VideoStim
		frames []int
	)
	switch v := s.(type) {
	case *stim.VideoStim:
		source = v
		frames = make([]int, v.NFrames())
		for i := range frames {
			frames[i] = i
		}
	case *stim.DerivedVideoStim:
		source = v.Source()
		frames = v.FrameIndex()
	default:
		return nil, mismatch(c, s)
	}

	positions, step, err := c.positions(len(frames), source.FPS())
	if err != nil {
		return nil, err
	}
	selected := make([]int, len(positions))
	for i, p := range positions {
		selected[i] = frames[p]
	}

	hist := s.History().Append(step)
	return stim.NewDerivedVideoStim(source, selected, stim.WithName(s.Name()), stim.WithHistory(hist)), nil
}

// positions returns which of n current frames to keep, and the history row
// describing the filter.
func (c *FrameSamplingConverter) positions(n int, fps float64) ([]int, stim.Step, error) {
	switch {
	case c.Every > 0 && c.Hertz == 0:
		var out []int
		for i := 0; i < n; i += c.Every {
			out = append(out, i)
		}
		return out, stim.Step{Converter: c.Name(), Filter: "every", Params: strconv.Itoa(c.Every)}, nil

	case c.Hertz > 0 && c.Every == 0:
		if fps <= 0 {
			return nil, stim.Step{}, errors.New("converters: FrameSamplingConverter: video has no frame rate")
		}
		interval := fps / c.Hertz
		var out []int
		for i := 0; ; i++ {
			p := int(float64(i) * interval)
			if p >= n {
				break
			}
			if len(out) > 0 && out[len(out)-1] == p {
				continue
			}
			out = append(out, p)
		}
		return out, stim.Step{Converter: c.Name(), Filter: "hertz", Params: strconv.FormatFloat(c.Hertz, 'g', -1, 64)}, nil
	}
	return nil, stim.Step{}, errors.New("converters: FrameSamplingConverter needs exactly one of Every or Hertz")
}
