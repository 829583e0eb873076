package converters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/HugeFrog24/stimconv/internal/media"
)

type RealAudioExtractor struct{}

func (RealAudioExtractor) ExtractAudio(ctx context.Context, videoFile, audioFile string) (bool, error) {
	err := media.ExtractAudio(ctx, videoFile, audioFile)
	if errors.Is(err, media.ErrNoAudioStream) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type RealFrameExporter struct{}

func (RealFrameExporter) ExportFrame(ctx context.Context, videoFile string, index int, imageFile string) error {
	return media.ExtractFrame(ctx, videoFile, index, imageFile)
}

type RealOCREngine struct{}

func (RealOCREngine) Recognize(ctx context.Context, imageFile, lang string) (string, error) {
	return media.OCR(ctx, imageFile, lang)
}

// RealSpeechTranscriber transcribes with the OpenAI audio API. Audio longer
// than the request's MaxDuration is split into chunks first.
type RealSpeechTranscriber struct {
	Client *openai.Client
}

func (r RealSpeechTranscriber) TranscribeAudio(ctx context.Context, req TranscriptionRequest) (Transcript, error) {
	client := r.Client
	if client == nil {
		c, err := newOpenAIClient()
		if err != nil {
			return Transcript{}, err
		}
		client = c
	}

	chunks := []media.Chunk{{File: req.AudioFile}}
	if req.MaxDuration > 0 {
		var err error
		chunks, err = splitAudio(ctx, req.AudioFile, req.MaxDuration)
		defer removeChunks(chunks, req.AudioFile)
		if err != nil {
			return Transcript{}, fmt.Errorf("failed to split audio: %w", err)
		}
	}

	parts := make([]chunkTranscript, 0, len(chunks))
	for _, chunk := range chunks {
		resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    req.Model,
			FilePath: chunk.File,
			Language: req.Language,
			Format:   openai.AudioResponseFormatVerboseJSON,
			TimestampGranularities: []openai.TranscriptionTimestampGranularity{
				openai.TranscriptionTimestampGranularityWord,
			},
		})
		if err != nil {
			return Transcript{}, fmt.Errorf("transcription error: %w", err)
		}

		part := chunkTranscript{offset: chunk.Start.Seconds(), text: resp.Text, language: resp.Language}
		for _, w := range resp.Words {
			part.words = append(part.words, Word{Text: w.Word, Start: w.Start, End: w.End})
		}
		parts = append(parts, part)
	}
	return mergeChunks(parts), nil
}

var splitAudio = media.SplitAudio

// removeChunks deletes the files split from audioFile, whether or not they
// were transcribed.
func removeChunks(chunks []media.Chunk, audioFile string) {
	for _, c := range chunks {
		if c.File != audioFile {
			os.Remove(c.File)
		}
	}
}

type chunkTranscript struct {
	offset   float64
	text     string
	language string
	words    []Word
}

// mergeChunks joins chunk transcripts, shifting word times by each chunk's
// offset into the full audio.
func mergeChunks(parts []chunkTranscript) Transcript {
	var full strings.Builder
	var t Transcript
	for _, p := range parts {
		full.WriteString(p.text)
		full.WriteString(" ")
		if t.Language == "" {
			t.Language = p.language
		}
		for _, w := range p.words {
			t.Words = append(t.Words, Word{Text: w.Text, Start: w.Start + p.offset, End: w.End + p.offset})
		}
	}
	t.Text = strings.TrimSpace(full.String())
	return t
}

func newOpenAIClient() (*openai.Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	return openai.NewClient(apiKey), nil
}

func chatClient(c ChatCompleter) (ChatCompleter, error) {
	if c != nil {
		return c, nil
	}
	return newOpenAIClient()
}

var languageDetector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build()
})

// DetectLanguage returns the name of the language of text, e.g. "ENGLISH", or
// "" when it cannot be determined.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return lang.String()
}

// firstChoice returns the content of the first choice of a chat response.
func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", errors.New("empty chat completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
