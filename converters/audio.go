package converters

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HugeFrog24/stimconv/stim"
)

var _ Converter = (*WhisperConverter)(nil)

// DefaultMaxDuration is the longest audio sent to Whisper in one request.
const DefaultMaxDuration = 5 * time.Minute

// WhisperConverter transcribes audio into a ComplexTextStim with one timed
// element per word. When the service reports no word timings the whole
// transcript becomes a single element.
type WhisperConverter struct {
	Model string
	// Language is an ISO-639-1 hint; empty lets the service detect it.
	Language    string
	MaxDuration time.Duration
	// Transcriber defaults to RealSpeechTranscriber.
	Transcriber SpeechTranscriber
}

func (c *WhisperConverter) Name() string          { return "WhisperConverter" }
func (c *WhisperConverter) Input() stim.Modality  { return stim.Audio }
func (c *WhisperConverter) Output() stim.Modality { return stim.ComplexText }

func (c *WhisperConverter) request(audioFile string) TranscriptionRequest {
	req := TranscriptionRequest{
		AudioFile:   audioFile,
		Model:       c.Model,
		Language:    c.Language,
		MaxDuration: c.MaxDuration,
	}
	if req.Model == "" {
		req.Model = openai.Whisper1
	}
	if req.MaxDuration == 0 {
		req.MaxDuration = DefaultMaxDuration
	}
	return req
}

func (c *WhisperConverter) Config() any {
	req := c.request("")
	return struct {
		Model       string        `msgpack:"model"`
		Language    string        `msgpack:"language"`
		MaxDuration time.Duration `msgpack:"max_duration"`
	}{req.Model, req.Language, req.MaxDuration}
}

func (c *WhisperConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	transcriber := c.Transcriber
	if transcriber == nil {
		transcriber = RealSpeechTranscriber{}
	}
	req := c.request(s.Filename())
	t, err := transcriber.TranscribeAudio(ctx, req)
	if err != nil {
		return nil, err
	}

	lang := t.Language
	if lang == "" {
		lang = DetectLanguage(t.Text)
	}

	base := s.Onset()
	var words []*stim.TextStim
	for _, w := range t.Words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		words = append(words, stim.NewTextStim(text,
			stim.WithOnset(base+w.Start),
			stim.WithDuration(w.End-w.Start)))
	}
	if len(words) == 0 && strings.TrimSpace(t.Text) != "" {
		words = append(words, stim.NewTextStim(strings.TrimSpace(t.Text),
			stim.WithOnset(base), stim.WithDuration(s.Duration())))
	}

	opts := derivedOpts(c, s, "transcript", stim.Step{Params: req.Model})
	return stim.NewComplexTextStim(words, lang, opts...), nil
}
