package stim

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// record is the wire form of every stimulus kind. Fields not used by a kind
// are left empty.
type record struct {
	Kind     Kind    `msgpack:"kind"`
	Name     string  `msgpack:"name,omitempty"`
	Filename string  `msgpack:"filename,omitempty"`
	Onset    float64 `msgpack:"onset,omitempty"`
	Duration float64 `msgpack:"duration,omitempty"`
	History  History `msgpack:"history,omitempty"`

	Video      *VideoInfo `msgpack:"video,omitempty"`
	Source     *record    `msgpack:"source,omitempty"`
	Frames     []int      `msgpack:"frames,omitempty"`
	Index      int        `msgpack:"index,omitempty"`
	Image      string     `msgpack:"image,omitempty"`
	SampleRate int        `msgpack:"sample_rate,omitempty"`
	Text       string     `msgpack:"text,omitempty"`
	Language   string     `msgpack:"language,omitempty"`
	Elements   []*record  `msgpack:"elements,omitempty"`
}

// Marshal encodes a stimulus with msgpack.
func Marshal(s Stim) ([]byte, error) {
	r, err := toRecord(s)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(r)
}

// Unmarshal decodes a stimulus encoded by Marshal.
func Unmarshal(data []byte) (Stim, error) {
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("stim: decode: %w", err)
	}
	return fromRecord(&r)
}

func metaRecord(kind Kind, m *meta) *record {
	return &record{
		Kind:     kind,
		Name:     m.name,
		Filename: m.filename,
		Onset:    m.onset,
		Duration: m.duration,
		History:  m.history,
	}
}

func (r *record) meta() meta {
	return meta{
		name:     r.Name,
		filename: r.Filename,
		onset:    r.Onset,
		duration: r.Duration,
		history:  r.History.clone(),
	}
}

func toRecord(s Stim) (*record, error) {
	switch v := s.(type) {
	case *VideoStim:
		r := metaRecord(KindVideo, &v.meta)
		info := v.info
		r.Video = &info
		return r, nil
	case *DerivedVideoStim:
		r := metaRecord(KindDerivedVideo, &v.meta)
		src, err := toRecord(v.source)
		if err != nil {
			return nil, err
		}
		r.Source = src
		r.Frames = v.frames
		return r, nil
	case *VideoFrameStim:
		r := metaRecord(KindVideoFrame, &v.meta)
		r.Filename = v.video
		r.Index = v.index
		r.Image = v.image
		return r, nil
	case *AudioStim:
		r := metaRecord(KindAudio, &v.meta)
		r.SampleRate = v.sampleRate
		return r, nil
	case *ImageStim:
		return metaRecord(KindImage, &v.meta), nil
	case *TextStim:
		r := metaRecord(KindText, &v.meta)
		r.Text = v.text
		r.Language = v.language
		return r, nil
	case *ComplexTextStim:
		r := metaRecord(KindComplexText, &v.meta)
		r.Language = v.language
		r.Elements = make([]*record, len(v.elements))
		for i, e := range v.elements {
			er, err := toRecord(e)
			if err != nil {
				return nil, err
			}
			r.Elements[i] = er
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownKind, s)
}

func fromRecord(r *record) (Stim, error) {
	switch r.Kind {
	case KindVideo:
		v := &VideoStim{meta: r.meta()}
		if r.Video != nil {
			v.info = *r.Video
		}
		return v, nil
	case KindDerivedVideo:
		if r.Source == nil || r.Source.Kind != KindVideo {
			return nil, fmt.Errorf("stim: decode %s: missing source video", r.Kind)
		}
		src, err := fromRecord(r.Source)
		if err != nil {
			return nil, err
		}
		return &DerivedVideoStim{meta: r.meta(), source: src.(*VideoStim), frames: r.Frames}, nil
	case KindVideoFrame:
		m := r.meta()
		m.filename = ""
		return &VideoFrameStim{meta: m, video: r.Filename, index: r.Index, image: r.Image}, nil
	case KindAudio:
		return &AudioStim{meta: r.meta(), sampleRate: r.SampleRate}, nil
	case KindImage:
		return &ImageStim{meta: r.meta()}, nil
	case KindText:
		return &TextStim{meta: r.meta(), text: r.Text, language: r.Language}, nil
	case KindComplexText:
		els := make([]*TextStim, len(r.Elements))
		for i, er := range r.Elements {
			e, err := fromRecord(er)
			if err != nil {
				return nil, err
			}
			t, ok := e.(*TextStim)
			if !ok {
				return nil, fmt.Errorf("stim: decode %s: element %d is %s", r.Kind, i, e.Kind())
			}
			els[i] = t
		}
		return &ComplexTextStim{meta: r.meta(), elements: els, language: r.Language}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
}
