package stim

import (
	"iter"
	"strings"
)

// TextStim is a piece of text, optionally timed.
type TextStim struct {
	meta
	text     string
	language string
}

// NewTextStim creates a text stimulus. Without WithName the name is the text
// itself.
func NewTextStim(text string, opts ...Option) *TextStim {
	m := newMeta("", append([]Option{WithName(text)}, opts...))
	return &TextStim{meta: m, text: text}
}

// WithLanguage returns a copy of t tagged with a detected language.
func (t *TextStim) WithLanguage(lang string) *TextStim {
	cp := *t
	cp.history = t.history.clone()
	cp.language = lang
	return &cp
}

func (t *TextStim) Kind() Kind         { return KindText }
func (t *TextStim) Modality() Modality { return Text }
func (t *TextStim) Text() string       { return t.text }
func (t *TextStim) Language() string   { return t.language }

// Fingerprint covers the name and language as well as the text, since
// converters carry both into their output.
func (t *TextStim) Fingerprint() string {
	return digest(string(KindText), t.name, t.language, t.text, formatFloat(t.onset), formatFloat(t.duration))
}

// ComplexTextStim is an ordered sequence of text elements, such as the words of
// a transcript.
type ComplexTextStim struct {
	meta
	elements []*TextStim
	language string
}

// NewComplexTextStim creates a complex text stimulus from its elements.
func NewComplexTextStim(elements []*TextStim, language string, opts ...Option) *ComplexTextStim {
	els := make([]*TextStim, len(elements))
	copy(els, elements)
	return &ComplexTextStim{meta: newMeta("", opts), elements: els, language: language}
}

func (c *ComplexTextStim) Kind() Kind         { return KindComplexText }
func (c *ComplexTextStim) Modality() Modality { return ComplexText }
func (c *ComplexTextStim) Language() string   { return c.language }
func (c *ComplexTextStim) Len() int           { return len(c.elements) }

func (c *ComplexTextStim) Elements() iter.Seq[Stim] {
	return func(yield func(Stim) bool) {
		for _, e := range c.elements {
			if !yield(e) {
				return
			}
		}
	}
}

// Texts returns the text of every element.
func (c *ComplexTextStim) Texts() []string {
	out := make([]string, len(c.elements))
	for i, e := range c.elements {
		out[i] = e.text
	}
	return out
}

// Join concatenates the element texts with single spaces.
func (c *ComplexTextStim) Join() string {
	return strings.Join(c.Texts(), " ")
}

func (c *ComplexTextStim) Fingerprint() string {
	parts := make([]string, 0, 4*len(c.elements)+3)
	parts = append(parts, string(KindComplexText), c.name, c.language)
	for _, e := range c.elements {
		parts = append(parts, e.language, e.text, formatFloat(e.onset), formatFloat(e.duration))
	}
	return digest(parts...)
}
