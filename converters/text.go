package converters

import (
	"context"
	"strings"

	"github.com/HugeFrog24/stimconv/stim"
)

var (
	_ Converter = (*ComplexTextToTextConverter)(nil)
	_ Converter = (*TextToComplexTextConverter)(nil)
)

// ComplexTextToTextConverter joins the elements of a ComplexTextStim into one
// TextStim spanning the whole sequence.
type ComplexTextToTextConverter struct {
	// Separator defaults to a single space.
	Separator string
}

func (c *ComplexTextToTextConverter) Name() string          { return "ComplexTextToTextConverter" }
func (c *ComplexTextToTextConverter) Input() stim.Modality  { return stim.ComplexText }
func (c *ComplexTextToTextConverter) Output() stim.Modality { return stim.Text }

func (c *ComplexTextToTextConverter) separator() string {
	if c.Separator == "" {
		return " "
	}
	return c.Separator
}

func (c *ComplexTextToTextConverter) Config() any {
	return struct {
		Separator string `msgpack:"separator"`
	}{c.separator()}
}

func (c *ComplexTextToTextConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	ct, ok := s.(*stim.ComplexTextStim)
	if !ok {
		return nil, mismatch(c, s)
	}
	text := strings.Join(ct.Texts(), c.separator())
	out := stim.NewTextStim(text, derivedOpts(c, s, "text", stim.Step{})...)
	return out.WithLanguage(ct.Language()), nil
}

// TextToComplexTextConverter splits a TextStim into one element per
// whitespace-separated word. The words carry no timing.
type TextToComplexTextConverter struct{}

func (c *TextToComplexTextConverter) Name() string          { return "TextToComplexTextConverter" }
func (c *TextToComplexTextConverter) Input() stim.Modality  { return stim.Text }
func (c *TextToComplexTextConverter) Output() stim.Modality { return stim.ComplexText }
func (c *TextToComplexTextConverter) Config() any           { return struct{}{} }

func (c *TextToComplexTextConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	t, ok := s.(*stim.TextStim)
	if !ok {
		return nil, mismatch(c, s)
	}
	fields := strings.Fields(t.Text())
	words := make([]*stim.TextStim, len(fields))
	for i, f := range fields {
		words[i] = stim.NewTextStim(f)
	}
	return stim.NewComplexTextStim(words, t.Language(), derivedOpts(c, s, "words", stim.Step{})...), nil
}
