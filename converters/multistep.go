package converters

import (
	"context"
	"fmt"
	"strings"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/stim"
)

var _ Converter = (*Multistep)(nil)

// Multistep chains converters, feeding each step's output to the next. Every
// step runs through its own Memo, so intermediate results are cached too.
type Multistep struct {
	name  string
	steps []*Memo
}

// NewMultistep resolves the shortest path from src to dst in reg and chains
// default instances of its converters.
func NewMultistep(reg *Registry, ch *cache.Cache, src, dst stim.Modality) (*Multistep, error) {
	path, err := reg.Path(src, dst)
	if err != nil {
		return nil, err
	}
	steps := make([]Converter, len(path))
	for i, r := range path {
		steps[i] = r.New()
	}
	return NewMultistepFrom(ch, steps...)
}

// NewMultistepFrom chains the given converters. Each step's output modality
// must be the next step's input modality.
func NewMultistepFrom(ch *cache.Cache, steps ...Converter) (*Multistep, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidPipeline)
	}
	m := &Multistep{steps: make([]*Memo, len(steps))}
	names := make([]string, len(steps))
	for i, s := range steps {
		if i > 0 && steps[i-1].Output() != s.Input() {
			return nil, fmt.Errorf("%w: %s outputs %s but %s expects %s", ErrInvalidPipeline,
				steps[i-1].Name(), steps[i-1].Output(), s.Name(), s.Input())
		}
		m.steps[i] = NewMemo(s, ch)
		names[i] = s.Name()
	}
	m.name = strings.Join(names, "->")
	return m, nil
}

// NewVideoToTextConverter transcribes the audio track of a video: video →
// audio → complex text.
func NewVideoToTextConverter(ch *cache.Cache) *Multistep {
	m, err := NewMultistepFrom(ch, &VideoToAudioConverter{}, &WhisperConverter{})
	if err != nil {
		panic(err)
	}
	m.name = "VideoToTextConverter"
	return m
}

func (m *Multistep) Name() string          { return m.name }
func (m *Multistep) Input() stim.Modality  { return m.steps[0].conv.Input() }
func (m *Multistep) Output() stim.Modality { return m.steps[len(m.steps)-1].conv.Output() }

// Steps returns the chained converters in order.
func (m *Multistep) Steps() []Converter {
	out := make([]Converter, len(m.steps))
	for i, s := range m.steps {
		out[i] = s.conv
	}
	return out
}

type stepConfig struct {
	Name   string `msgpack:"name"`
	Config any    `msgpack:"config"`
}

func (m *Multistep) Config() any {
	cfg := make([]stepConfig, len(m.steps))
	for i, s := range m.steps {
		cfg[i] = stepConfig{Name: s.conv.Name(), Config: s.conv.Config()}
	}
	return cfg
}

func (m *Multistep) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(m, s); err != nil {
		return nil, err
	}
	cur := s
	for i, step := range m.steps {
		out, err := step.Convert(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("converters: %s step %d (%s): %w", m.name, i+1, step.conv.Name(), err)
		}
		cur = out
	}
	return cur, nil
}
