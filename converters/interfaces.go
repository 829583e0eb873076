package converters

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// AudioExtractor writes the audio track of a video to a file. It returns
// false without error when the video has no audio stream.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoFile, audioFile string) (bool, error)
}

// FrameExporter writes a single video frame to an image file.
type FrameExporter interface {
	ExportFrame(ctx context.Context, videoFile string, index int, imageFile string) error
}

// OCREngine recognizes text in an image file.
type OCREngine interface {
	Recognize(ctx context.Context, imageFile, lang string) (string, error)
}

// TranscriptionRequest is the input of a SpeechTranscriber.
type TranscriptionRequest struct {
	AudioFile   string
	Model       string
	Language    string
	MaxDuration time.Duration
}

// Word is a timed word of a transcript. Times are seconds from the start of
// the audio.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Transcript is the output of a SpeechTranscriber.
type Transcript struct {
	Text     string
	Language string
	Words    []Word
}

// SpeechTranscriber turns an audio file into a transcript.
type SpeechTranscriber interface {
	TranscribeAudio(ctx context.Context, req TranscriptionRequest) (Transcript, error)
}

// ChatCompleter is the subset of *openai.Client used by the chat-backed
// converters.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}
