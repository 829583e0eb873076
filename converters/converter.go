// Package converters turns stimuli of one modality into stimuli of another.
//
// # Overview
//
// A Converter declares an input and an output modality and implements
// Transform, which always recomputes. Memo wraps a Converter with a cache:
// Memo.Convert returns the stored result for a (converter, configuration,
// input fingerprint) triple when there is one and only calls Transform on a
// miss.
//
// Converters are found through a Registry:
//
//	conv := converters.GetConverter(stim.Image, stim.Text)  // nil if none
//
// When no single converter bridges two modalities, a Multistep chains several:
//
//	ms, err := converters.NewMultistep(converters.DefaultRegistry, c, stim.Video, stim.Text)
//	text, err := ms.Transform(ctx, video)
//
// # Built-in converters
//
//   - VideoToAudioConverter: video → audio (ffmpeg)
//   - FrameSamplingConverter: video → video (frame selection)
//   - TesseractConverter: image → text (tesseract)
//   - VisionTextConverter: image → text (OpenAI vision, remote)
//   - WhisperConverter: audio → complex text (OpenAI Whisper, remote)
//   - ComplexTextToTextConverter: complex text → text
//   - SummaryConverter: complex text → text (OpenAI chat, remote)
//   - TextToComplexTextConverter: text → complex text
//   - DescriptionConverter: text → text (OpenAI chat, remote)
package converters

import (
	"context"
	"errors"
	"fmt"

	"github.com/HugeFrog24/stimconv/internal/media"
	"github.com/HugeFrog24/stimconv/stim"
)

// Sentinel errors.
var (
	// ErrModalityMismatch is matched by every *ModalityMismatchError.
	ErrModalityMismatch = errors.New("converters: modality mismatch")

	// ErrNoConverterPath is returned when no chain of converters links two
	// modalities.
	ErrNoConverterPath = errors.New("converters: no converter path")

	// ErrInvalidPipeline is returned when adjacent steps of a multistep
	// converter do not fit together.
	ErrInvalidPipeline = errors.New("converters: invalid pipeline")

	// ErrNoAudioStream is returned when a video has no audio track.
	ErrNoAudioStream = media.ErrNoAudioStream
)

// Converter transforms a stimulus of its Input modality into a stimulus of
// its Output modality.
type Converter interface {
	// Name identifies the converter type; it is part of every cache key.
	Name() string
	Input() stim.Modality
	Output() stim.Modality
	// Config returns every option that affects the output. Equal configs on
	// equal inputs must give equal outputs.
	Config() any
	// Transform performs the conversion without consulting any cache.
	Transform(ctx context.Context, s stim.Stim) (stim.Stim, error)
}

// ModalityMismatchError reports a stimulus handed to a converter that does not
// accept its modality.
type ModalityMismatchError struct {
	Converter string
	Want      stim.Modality
	Got       stim.Modality
	Kind      stim.Kind
}

func (e *ModalityMismatchError) Error() string {
	return fmt.Sprintf("converters: %s expects %s input, got %s (%s)", e.Converter, e.Want, e.Got, e.Kind)
}

func (e *ModalityMismatchError) Is(target error) bool {
	return target == ErrModalityMismatch
}

// checkInput fails with a *ModalityMismatchError unless s has c's input
// modality.
func checkInput(c Converter, s stim.Stim) error {
	if s == nil {
		return fmt.Errorf("converters: %s: nil stimulus", c.Name())
	}
	if s.Modality() != c.Input() {
		return &ModalityMismatchError{
			Converter: c.Name(),
			Want:      c.Input(),
			Got:       s.Modality(),
			Kind:      s.Kind(),
		}
	}
	return nil
}

func mismatch(c Converter, s stim.Stim) error {
	return &ModalityMismatchError{Converter: c.Name(), Want: c.Input(), Got: s.Modality(), Kind: s.Kind()}
}

// derivedOpts returns the options shared by every converter output: the name
// "<source>_<suffix>", the source timing, and the source history plus one step.
func derivedOpts(c Converter, s stim.Stim, suffix string, step stim.Step) []stim.Option {
	step.Converter = c.Name()
	return []stim.Option{
		stim.WithName(stim.DerivedName(s, suffix)),
		stim.WithOnset(s.Onset()),
		stim.WithDuration(s.Duration()),
		stim.WithHistory(s.History().Append(step)),
	}
}
