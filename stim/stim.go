// Package stim defines the stimulus types that converters consume and produce.
//
// Every stimulus carries a Kind (its concrete variant) and a Modality (the
// capability tag used for converter dispatch). A video frame, for example, is
// of kind KindVideoFrame but of modality Image, so any image converter accepts
// it.
//
// Stimuli are immutable by convention: converters never modify their input,
// they return a new stimulus whose History extends the input's History by one
// row.
package stim

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
)

// ErrUnknownKind is returned when decoding a stimulus of an unregistered kind.
var ErrUnknownKind = errors.New("stim: unknown kind")

// Modality is the semantic media type of a stimulus.
type Modality string

const (
	Video       Modality = "video"
	Audio       Modality = "audio"
	Image       Modality = "image"
	Text        Modality = "text"
	ComplexText Modality = "complex_text"
)

// Modalities lists all modalities in a fixed order.
var Modalities = []Modality{Video, Audio, Image, Text, ComplexText}

// ParseModality parses a modality name such as "video" or "complex_text".
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Modalities {
		if v == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("stim: unknown modality %q", s)
}

// Kind is the concrete variant of a stimulus.
type Kind string

const (
	KindVideo        Kind = "video"
	KindDerivedVideo Kind = "derived_video"
	KindVideoFrame   Kind = "video_frame"
	KindAudio        Kind = "audio"
	KindImage        Kind = "image"
	KindText         Kind = "text"
	KindComplexText  Kind = "complex_text"
)

// Stim is a unit of media data plus derived metadata.
type Stim interface {
	// Name identifies the stimulus. Loaded stimuli use the base of their
	// filename, derived ones use "<source name>_<suffix>".
	Name() string
	// Filename is the backing file, empty for in-memory stimuli.
	Filename() string
	Kind() Kind
	Modality() Modality
	// Onset and Duration are in seconds; zero when unknown.
	Onset() float64
	Duration() float64
	// History is the audit trail of converters applied to produce this
	// stimulus. The returned slice is a copy.
	History() History
	// Fingerprint is a stable digest of the stimulus identity and content.
	// Two stimuli with equal fingerprints are interchangeable.
	Fingerprint() string
}

// Composite is a stimulus made of child stimuli. Elements is finite and may be
// iterated any number of times.
type Composite interface {
	Stim
	Len() int
	Elements() iter.Seq[Stim]
}

// Step is one row of a stimulus History.
type Step struct {
	Converter string `msgpack:"converter" xml:"converter,attr"`
	Filter    string `msgpack:"filter,omitempty" xml:"filter,attr,omitempty"`
	Params    string `msgpack:"params,omitempty" xml:"params,attr,omitempty"`
}

// History is an append-only list of applied steps.
type History []Step

// Append returns a new History with s appended. h is left untouched.
func (h History) Append(s Step) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, s)
}

// Filters returns the Filter column.
func (h History) Filters() []string {
	out := make([]string, len(h))
	for i, s := range h {
		out[i] = s.Filter
	}
	return out
}

func (h History) clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}

// Option configures the common fields of a stimulus at construction.
type Option func(*meta)

// WithName overrides the default name.
func WithName(name string) Option {
	return func(m *meta) { m.name = name }
}

// WithOnset sets the onset in seconds.
func WithOnset(onset float64) Option {
	return func(m *meta) { m.onset = onset }
}

// WithDuration sets the duration in seconds.
func WithDuration(d float64) Option {
	return func(m *meta) { m.duration = d }
}

// WithHistory sets the history the stimulus was derived with.
func WithHistory(h History) Option {
	return func(m *meta) { m.history = h.clone() }
}

// DerivedName joins a source name and a suffix the way derived stimuli are
// named, e.g. "small.mp4" + "small.wav" -> "small.mp4_small.wav".
func DerivedName(source Stim, suffix string) string {
	if source == nil || source.Name() == "" {
		return suffix
	}
	return source.Name() + "_" + suffix
}

type meta struct {
	name     string
	filename string
	onset    float64
	duration float64
	history  History
}

func newMeta(filename string, opts []Option) meta {
	m := meta{filename: filename}
	if filename != "" {
		m.name = filepath.Base(filename)
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m *meta) Name() string      { return m.name }
func (m *meta) Filename() string  { return m.filename }
func (m *meta) Onset() float64    { return m.onset }
func (m *meta) Duration() float64 { return m.duration }
func (m *meta) History() History  { return m.history.clone() }
