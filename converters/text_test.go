package converters_test

import (
	"context"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

func words(lang string, texts ...string) *stim.ComplexTextStim {
	els := make([]*stim.TextStim, len(texts))
	for i, s := range texts {
		els[i] = stim.NewTextStim(s, stim.WithOnset(float64(i)))
	}
	return stim.NewComplexTextStim(els, lang, stim.WithName("talk"), stim.WithDuration(float64(len(texts))))
}

func TestComplexTextToText(t *testing.T) {
	ctx := context.Background()
	out, err := (&converters.ComplexTextToTextConverter{}).Transform(ctx, words("english", "to", "be", "or"))
	require.NoError(t, err)
	text := out.(*stim.TextStim)
	assert.Equal(t, "to be or", text.Text())
	assert.Equal(t, "english", text.Language())
	assert.Equal(t, "talk_text", text.Name())
	assert.Equal(t, 3.0, text.Duration())

	out, err = (&converters.ComplexTextToTextConverter{Separator: "\n"}).Transform(ctx, words("", "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb", out.(*stim.TextStim).Text())
}

func TestTextToComplexText(t *testing.T) {
	in := stim.NewTextStim("  not to\tbe ", stim.WithName("line")).WithLanguage("english")
	out, err := (&converters.TextToComplexTextConverter{}).Transform(context.Background(), in)
	require.NoError(t, err)
	ct := out.(*stim.ComplexTextStim)
	assert.Equal(t, []string{"not", "to", "be"}, ct.Texts())
	assert.Equal(t, "english", ct.Language())
	assert.Equal(t, "line_words", ct.Name())
}

func TestSummaryShortTextIsKept(t *testing.T) {
	conv := &converters.SummaryConverter{
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				t.Fatal("short text must not be summarized")
				return openai.ChatCompletionResponse{}, nil
			},
		},
	}
	out, err := conv.Transform(context.Background(), words("english", "short", "talk"))
	require.NoError(t, err)
	assert.Equal(t, "short talk", out.(*stim.TextStim).Text())
	assert.Equal(t, "talk_summary", out.Name())
}

func TestSummaryLongText(t *testing.T) {
	var requests []openai.ChatCompletionRequest
	conv := &converters.SummaryConverter{
		TargetLength: 20,
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				requests = append(requests, req)
				return converters.ChatReply("a brief summary"), nil
			},
		},
	}
	in := words("english", strings.Fields("the quick brown fox jumps over the lazy dog")...)
	out, err := conv.Transform(context.Background(), in)
	require.NoError(t, err)

	text := out.(*stim.TextStim)
	assert.Equal(t, "a brief summary", text.Text())
	assert.Equal(t, "english", text.Language())
	require.Len(t, requests, 1)
	assert.Equal(t, openai.GPT3Dot5Turbo, requests[0].Model)
	assert.Contains(t, requests[0].Messages[1].Content, "the quick brown fox")
	assert.Equal(t, "20", text.History()[0].Params)
}

func TestSummaryPropagatesErrors(t *testing.T) {
	conv := &converters.SummaryConverter{
		TargetLength: 5,
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, assert.AnError
			},
		},
	}
	_, err := conv.Transform(context.Background(), words("english", "long", "enough", "text"))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestDescriptionPicksBestCandidate(t *testing.T) {
	var generated, evaluated int
	conv := &converters.DescriptionConverter{
		Attempts: 3,
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				switch req.Model {
				case openai.GPT4:
					generated++
					assert.Contains(t, req.Messages[1].Content, "Name: lecture.mp4")
					return converters.ChatReply("candidate " + string(rune('0'+generated))), nil
				case openai.GPT3Dot5Turbo16K:
					evaluated++
					assert.Contains(t, req.Messages[1].Content, "2. candidate 2")
					if evaluated == 1 {
						return converters.ChatReply("the second one"), nil
					}
					return converters.ChatReply("2"), nil
				}
				t.Fatalf("unexpected model %s", req.Model)
				return openai.ChatCompletionResponse{}, nil
			},
		},
	}
	in := stim.NewTextStim("a talk about go", stim.WithName("lecture.mp4")).WithLanguage("english")
	out, err := conv.Transform(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "candidate 2", out.(*stim.TextStim).Text())
	assert.Equal(t, "lecture.mp4_description", out.Name())
	assert.Equal(t, 3, generated)
	assert.Equal(t, 2, evaluated)
}

func TestDescriptionSingleAttemptSkipsEvaluation(t *testing.T) {
	conv := &converters.DescriptionConverter{
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				assert.Equal(t, openai.GPT4, req.Model)
				return converters.ChatReply("only one"), nil
			},
		},
	}
	out, err := conv.Transform(context.Background(), stim.NewTextStim("text").WithLanguage("english"))
	require.NoError(t, err)
	assert.Equal(t, "only one", out.(*stim.TextStim).Text())
}

func TestDescriptionEvaluationGivesUp(t *testing.T) {
	conv := &converters.DescriptionConverter{
		Attempts: 2,
		Client: &converters.MockChatCompleter{
			CreateChatCompletionFunc: func(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				if req.Model == openai.GPT4 {
					return converters.ChatReply("candidate"), nil
				}
				return converters.ChatReply("7"), nil
			},
		},
	}
	_, err := conv.Transform(context.Background(), stim.NewTextStim("text").WithLanguage("english"))
	assert.ErrorContains(t, err, "after 3 attempts")
}
