package converters_test

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

// countingConverter is a Text → Text converter that counts Transform calls.
type countingConverter struct {
	Suffix string
	Err    error
	calls  atomic.Int32
}

func (c *countingConverter) Name() string          { return "countingConverter" }
func (c *countingConverter) Input() stim.Modality  { return stim.Text }
func (c *countingConverter) Output() stim.Modality { return stim.Text }
func (c *countingConverter) Config() any           { return map[string]string{"suffix": c.Suffix} }
func (c *countingConverter) Calls() int            { return int(c.calls.Load()) }

func (c *countingConverter) Transform(_ context.Context, s stim.Stim) (stim.Stim, error) {
	c.calls.Add(1)
	if c.Err != nil {
		return nil, c.Err
	}
	t := s.(*stim.TextStim)
	out := strings.ToUpper(t.Text()) + c.Suffix
	return stim.NewTextStim(out, stim.WithHistory(s.History().Append(stim.Step{Converter: c.Name()}))), nil
}

// modalityConverter maps any stimulus of modality in to a TextStim tagged with
// its name, declaring out as output. Used to build synthetic graphs.
type modalityConverter struct {
	name    string
	in, out stim.Modality
	calls   atomic.Int32
}

func (c *modalityConverter) Name() string          { return c.name }
func (c *modalityConverter) Input() stim.Modality  { return c.in }
func (c *modalityConverter) Output() stim.Modality { return c.out }
func (c *modalityConverter) Config() any           { return nil }

func (c *modalityConverter) Transform(_ context.Context, s stim.Stim) (stim.Stim, error) {
	c.calls.Add(1)
	hist := s.History().Append(stim.Step{Converter: c.name})
	switch c.out {
	case stim.Audio:
		return stim.NewAudioStim(s.Name()+".wav", 16000, stim.WithHistory(hist)), nil
	case stim.ComplexText:
		words := []*stim.TextStim{stim.NewTextStim(c.name)}
		return stim.NewComplexTextStim(words, "", stim.WithName(s.Name()), stim.WithHistory(hist)), nil
	default:
		return stim.NewTextStim(s.Name()+"|"+c.name, stim.WithHistory(hist)), nil
	}
}

func registration(c converters.Converter, remote bool) converters.Registration {
	return converters.Registration{
		Name:   c.Name(),
		Input:  c.Input(),
		Output: c.Output(),
		Remote: remote,
		New:    func() converters.Converter { return c },
	}
}
