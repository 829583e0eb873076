package stim

import (
	"context"
	"fmt"

	"github.com/HugeFrog24/stimconv/internal/media"
)

// AudioStim is an audio file.
type AudioStim struct {
	meta
	sampleRate int
}

// NewAudioStim creates an audio stimulus.
func NewAudioStim(filename string, sampleRate int, opts ...Option) *AudioStim {
	return &AudioStim{meta: newMeta(filename, opts), sampleRate: sampleRate}
}

// LoadAudio probes filename for its duration and returns its stimulus.
func LoadAudio(ctx context.Context, filename string) (*AudioStim, error) {
	d, err := media.Duration(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("stim: load audio %s: %w", filename, err)
	}
	return NewAudioStim(filename, 0, WithDuration(d.Seconds())), nil
}

func (a *AudioStim) Kind() Kind         { return KindAudio }
func (a *AudioStim) Modality() Modality { return Audio }
func (a *AudioStim) SampleRate() int    { return a.sampleRate }

func (a *AudioStim) Fingerprint() string {
	return fileFingerprint(KindAudio, a.filename)
}

// ImageStim is an image file.
type ImageStim struct {
	meta
}

// NewImageStim creates an image stimulus.
func NewImageStim(filename string, opts ...Option) *ImageStim {
	return &ImageStim{meta: newMeta(filename, opts)}
}

func (i *ImageStim) Kind() Kind         { return KindImage }
func (i *ImageStim) Modality() Modality { return Image }

func (i *ImageStim) Fingerprint() string {
	return fileFingerprint(KindImage, i.filename)
}
