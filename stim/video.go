package stim

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/HugeFrog24/stimconv/internal/media"
)

// VideoInfo describes the stream properties of a video file.
type VideoInfo struct {
	FPS      float64 `msgpack:"fps"`
	NFrames  int     `msgpack:"n_frames"`
	Width    int     `msgpack:"width"`
	Height   int     `msgpack:"height"`
	Duration float64 `msgpack:"duration"`
}

// VideoStim is a video file.
type VideoStim struct {
	meta
	info VideoInfo
}

// NewVideoStim creates a video stimulus from known stream properties. If
// info.Duration is zero it is derived from NFrames and FPS.
func NewVideoStim(filename string, info VideoInfo, opts ...Option) *VideoStim {
	if info.Duration == 0 && info.FPS > 0 {
		info.Duration = float64(info.NFrames) / info.FPS
	}
	m := newMeta(filename, append([]Option{WithDuration(info.Duration)}, opts...))
	return &VideoStim{meta: m, info: info}
}

// LoadVideo probes filename with ffprobe and returns its stimulus.
func LoadVideo(ctx context.Context, filename string) (*VideoStim, error) {
	p, err := media.ProbeVideo(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("stim: load video %s: %w", filename, err)
	}
	return NewVideoStim(filename, VideoInfo{
		FPS:      p.FPS,
		NFrames:  p.NFrames,
		Width:    p.Width,
		Height:   p.Height,
		Duration: p.Duration,
	}), nil
}

func (v *VideoStim) Kind() Kind         { return KindVideo }
func (v *VideoStim) Modality() Modality { return Video }
func (v *VideoStim) Info() VideoInfo    { return v.info }
func (v *VideoStim) FPS() float64       { return v.info.FPS }
func (v *VideoStim) NFrames() int       { return v.info.NFrames }

func (v *VideoStim) Fingerprint() string {
	return fileFingerprint(KindVideo, v.filename)
}

// Len implements Composite; every frame of the video is an element.
func (v *VideoStim) Len() int { return v.info.NFrames }

// Elements yields every frame of the video.
func (v *VideoStim) Elements() iter.Seq[Stim] {
	return frameSeq(v, allFrames(v.info.NFrames))
}

// Frame returns the frame at index i.
func (v *VideoStim) Frame(i int) *VideoFrameStim {
	return newFrame(v, i, i+1)
}

func allFrames(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// DerivedVideoStim is a video restricted to a subset of its original frames.
// The frame index always refers to frames of the original video, so
// successive filters narrow the selection instead of re-indexing it.
type DerivedVideoStim struct {
	meta
	source *VideoStim
	frames []int
}

// NewDerivedVideoStim creates a derived video over the given original frame
// indices. The name and filename are the source's.
func NewDerivedVideoStim(source *VideoStim, frames []int, opts ...Option) *DerivedVideoStim {
	all := append([]Option{WithName(source.Name()), WithDuration(source.Duration())}, opts...)
	m := newMeta(source.Filename(), all)
	idx := make([]int, len(frames))
	copy(idx, frames)
	return &DerivedVideoStim{meta: m, source: source, frames: idx}
}

func (d *DerivedVideoStim) Kind() Kind         { return KindDerivedVideo }
func (d *DerivedVideoStim) Modality() Modality { return Video }
func (d *DerivedVideoStim) Source() *VideoStim { return d.source }
func (d *DerivedVideoStim) FPS() float64       { return d.source.FPS() }
func (d *DerivedVideoStim) Len() int           { return len(d.frames) }

// FrameIndex returns a copy of the selected original frame indices.
func (d *DerivedVideoStim) FrameIndex() []int {
	out := make([]int, len(d.frames))
	copy(out, d.frames)
	return out
}

func (d *DerivedVideoStim) Fingerprint() string {
	parts := make([]string, 0, len(d.frames)+2)
	parts = append(parts, string(KindDerivedVideo), d.source.Fingerprint())
	for _, f := range d.frames {
		parts = append(parts, strconv.Itoa(f))
	}
	return digest(parts...)
}

// Elements yields one VideoFrameStim per selected frame. A frame lasts until
// the next selected frame, the last one until the end of the video.
func (d *DerivedVideoStim) Elements() iter.Seq[Stim] {
	return frameSeq(d.source, d.frames)
}

// Frames returns the selected frames.
func (d *DerivedVideoStim) Frames() []*VideoFrameStim {
	out := make([]*VideoFrameStim, 0, len(d.frames))
	for s := range d.Elements() {
		out = append(out, s.(*VideoFrameStim))
	}
	return out
}

func frameSeq(v *VideoStim, frames []int) iter.Seq[Stim] {
	return func(yield func(Stim) bool) {
		for i, idx := range frames {
			end := v.info.NFrames
			if i+1 < len(frames) {
				end = frames[i+1]
			}
			if !yield(newFrame(v, idx, end)) {
				return
			}
		}
	}
}

// VideoFrameStim is a single frame of a video. It has the Image modality; the
// frame only becomes a file once exported (see WithImage).
type VideoFrameStim struct {
	meta
	video string
	index int
	image string
}

func newFrame(v *VideoStim, idx, end int) *VideoFrameStim {
	var onset, dur float64
	if v.info.FPS > 0 {
		onset = float64(idx) / v.info.FPS
		dur = float64(end-idx) * (1 / v.info.FPS)
	}
	return &VideoFrameStim{
		meta: meta{
			name:     DerivedName(v, strconv.Itoa(idx)),
			onset:    onset,
			duration: dur,
			history:  v.history.clone(),
		},
		video: v.filename,
		index: idx,
	}
}

func (f *VideoFrameStim) Kind() Kind         { return KindVideoFrame }
func (f *VideoFrameStim) Modality() Modality { return Image }
func (f *VideoFrameStim) Index() int         { return f.index }
func (f *VideoFrameStim) Video() string      { return f.video }

// Filename is the exported image path, empty until the frame is exported.
func (f *VideoFrameStim) Filename() string { return f.image }

// WithImage returns a copy of f backed by an exported image file.
func (f *VideoFrameStim) WithImage(path string) *VideoFrameStim {
	cp := *f
	cp.history = f.history.clone()
	cp.image = path
	return &cp
}

func (f *VideoFrameStim) Fingerprint() string {
	return digest(string(KindVideoFrame), fileFingerprint(KindVideo, f.video), strconv.Itoa(f.index))
}
