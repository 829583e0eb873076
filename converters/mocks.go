package converters

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

type MockAudioExtractor struct {
	ExtractAudioFunc func(ctx context.Context, videoFile, audioFile string) (bool, error)
}

func (m *MockAudioExtractor) ExtractAudio(ctx context.Context, videoFile, audioFile string) (bool, error) {
	return m.ExtractAudioFunc(ctx, videoFile, audioFile)
}

type MockFrameExporter struct {
	ExportFrameFunc func(ctx context.Context, videoFile string, index int, imageFile string) error
}

func (m *MockFrameExporter) ExportFrame(ctx context.Context, videoFile string, index int, imageFile string) error {
	return m.ExportFrameFunc(ctx, videoFile, index, imageFile)
}

type MockOCREngine struct {
	RecognizeFunc func(ctx context.Context, imageFile, lang string) (string, error)
}

func (m *MockOCREngine) Recognize(ctx context.Context, imageFile, lang string) (string, error) {
	return m.RecognizeFunc(ctx, imageFile, lang)
}

type MockSpeechTranscriber struct {
	TranscribeAudioFunc func(ctx context.Context, req TranscriptionRequest) (Transcript, error)
}

func (m *MockSpeechTranscriber) TranscribeAudio(ctx context.Context, req TranscriptionRequest) (Transcript, error) {
	return m.TranscribeAudioFunc(ctx, req)
}

type MockChatCompleter struct {
	CreateChatCompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (m *MockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return m.CreateChatCompletionFunc(ctx, req)
}

// ChatReply builds a single-choice chat response, for use in mocks.
func ChatReply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}
