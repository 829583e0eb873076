package converters

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HugeFrog24/stimconv/stim"
)

var (
	_ Converter = (*SummaryConverter)(nil)
	_ Converter = (*DescriptionConverter)(nil)
)

const (
	maxChunkSize        = 8000
	maxIterations       = 10
	defaultTargetLength = 2000
	evaluationAttempts  = 3
)

// SummaryConverter condenses a ComplexTextStim into a TextStim of at most
// TargetLength characters. Long inputs are summarized chunk by chunk and the
// joined summaries are summarized again until they fit.
type SummaryConverter struct {
	Model        string
	TargetLength int
	Client       ChatCompleter
}

func (c *SummaryConverter) Name() string          { return "SummaryConverter" }
func (c *SummaryConverter) Input() stim.Modality  { return stim.ComplexText }
func (c *SummaryConverter) Output() stim.Modality { return stim.Text }

func (c *SummaryConverter) model() string {
	if c.Model == "" {
		return openai.GPT3Dot5Turbo
	}
	return c.Model
}

func (c *SummaryConverter) targetLength() int {
	if c.TargetLength <= 0 {
		return defaultTargetLength
	}
	return c.TargetLength
}

func (c *SummaryConverter) Config() any {
	return struct {
		Model        string `msgpack:"model"`
		TargetLength int    `msgpack:"target_length"`
	}{c.model(), c.targetLength()}
}

func (c *SummaryConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	ct, ok := s.(*stim.ComplexTextStim)
	if !ok {
		return nil, mismatch(c, s)
	}
	client, err := chatClient(c.Client)
	if err != nil {
		return nil, err
	}
	lang := ct.Language()
	if lang == "" {
		lang = DetectLanguage(ct.Join())
	}

	summary, err := c.summarize(ctx, client, ct.Join(), lang, 0)
	if err != nil {
		return nil, err
	}
	opts := derivedOpts(c, s, "summary", stim.Step{Params: strconv.Itoa(c.targetLength())})
	return stim.NewTextStim(summary, opts...).WithLanguage(lang), nil
}

func (c *SummaryConverter) summarize(ctx context.Context, client ChatCompleter, text, lang string, iteration int) (string, error) {
	if len(text) <= c.targetLength() || iteration >= maxIterations {
		return text, nil
	}

	chunks := splitTextIntoChunks(text, maxChunkSize)
	summarized := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := c.summarizeChunk(ctx, client, chunk, lang)
		if err != nil {
			return "", fmt.Errorf("error summarizing chunk %d: %w", i, err)
		}
		summarized = append(summarized, summary)
	}

	return c.summarize(ctx, client, strings.Join(summarized, " "), lang, iteration+1)
}

func (c *SummaryConverter) summarizeChunk(ctx context.Context, client ChatCompleter, chunk, lang string) (string, error) {
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model(),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are a helpful assistant that summarizes text concisely while retaining key information. Always respond in %s.", languageOrSame(lang)),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Summarize the following text in %s, maintaining key information and context:\n\n%s", languageOrSame(lang), chunk),
			},
		},
		MaxTokens: 500,
	})
	if err != nil {
		return "", fmt.Errorf("error creating chat completion: %w", err)
	}
	return firstChoice(resp)
}

// splitTextIntoChunks splits text on word boundaries into chunks of roughly
// chunkSize characters.
func splitTextIntoChunks(text string, chunkSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	numChunks := math.Ceil(float64(len(text)) / float64(chunkSize))
	wordsPerChunk := int(math.Ceil(float64(len(words)) / numChunks))

	var chunks []string
	for i := 0; i < len(words); i += wordsPerChunk {
		end := min(i+wordsPerChunk, len(words))
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

func languageOrSame(lang string) string {
	if lang == "" {
		return "the same language as the text"
	}
	return strings.ToLower(lang)
}

// DescriptionConverter writes a short description of a text, typically a
// transcript. It generates Attempts candidates and asks the model to pick
// the best one. The stimulus name, usually derived from the source file
// name, is given to the model as extra context.
type DescriptionConverter struct {
	Model     string
	EvalModel string
	Attempts  int
	Client    ChatCompleter
}

func (c *DescriptionConverter) Name() string          { return "DescriptionConverter" }
func (c *DescriptionConverter) Input() stim.Modality  { return stim.Text }
func (c *DescriptionConverter) Output() stim.Modality { return stim.Text }

func (c *DescriptionConverter) settings() (model, evalModel string, attempts int) {
	model, evalModel, attempts = c.Model, c.EvalModel, c.Attempts
	if model == "" {
		model = openai.GPT4
	}
	if evalModel == "" {
		evalModel = openai.GPT3Dot5Turbo16K
	}
	if attempts <= 0 {
		attempts = 1
	}
	return model, evalModel, attempts
}

func (c *DescriptionConverter) Config() any {
	model, evalModel, attempts := c.settings()
	return struct {
		Model     string `msgpack:"model"`
		EvalModel string `msgpack:"eval_model"`
		Attempts  int    `msgpack:"attempts"`
	}{model, evalModel, attempts}
}

func (c *DescriptionConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	t, ok := s.(*stim.TextStim)
	if !ok {
		return nil, mismatch(c, s)
	}
	client, err := chatClient(c.Client)
	if err != nil {
		return nil, err
	}
	model, evalModel, attempts := c.settings()
	lang := t.Language()
	if lang == "" {
		lang = DetectLanguage(t.Text())
	}

	descriptions, err := generateDescriptions(ctx, client, model, t.Text(), s.Name(), lang, attempts)
	if err != nil {
		return nil, err
	}
	best := 1
	if len(descriptions) > 1 {
		best, err = evaluateDescriptions(ctx, client, evalModel, descriptions, t.Text(), s.Name(), lang)
		if err != nil {
			return nil, err
		}
	}
	opts := derivedOpts(c, s, "description", stim.Step{Params: strconv.Itoa(attempts)})
	return stim.NewTextStim(descriptions[best-1], opts...).WithLanguage(lang), nil
}

func generateDescriptions(ctx context.Context, client ChatCompleter, model, text, name, lang string, attempts int) ([]string, error) {
	systemPrompt := fmt.Sprintf("You are a helpful assistant that generates clear and concise descriptions of media in %s. "+
		"Ensure the description is in the same language as the text. Use the name to infer additional context about the content "+
		"or theme, as it may contain relevant keywords not present in the text.", languageOrSame(lang))

	descriptions := make([]string, 0, attempts)
	for i := 0; i < attempts; i++ {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("Based on the following text and name, generate a clear and concise description.\n\nName: %s\n\nText:\n%s", name, text),
				},
			},
		})
		if err != nil {
			return descriptions, fmt.Errorf("error generating description: %w", err)
		}
		d, err := firstChoice(resp)
		if err != nil {
			return descriptions, err
		}
		descriptions = append(descriptions, d)
	}
	return descriptions, nil
}

// evaluateDescriptions returns the 1-based index of the best description. The
// model is asked up to evaluationAttempts times for a bare number.
func evaluateDescriptions(ctx context.Context, client ChatCompleter, model string, descriptions []string, text, name, lang string) (int, error) {
	prompt := fmt.Sprintf(`You are an expert in evaluating descriptions in %s. Analyze the following descriptions and return the number (1-based index) of the best description based on:

- How well it matches the text and name.
- Style, language consistency, and clarity.
- Prioritize descriptions that are in the same language as the text.
- Only return the number, no other text.

Name: %s

Text:
%s

Descriptions:
%s

Remember, respond with ONLY the number of the best description, nothing else.`, languageOrSame(lang), name, text, formatDescriptions(descriptions))

	for attempt := 0; attempt < evaluationAttempts; attempt++ {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You are a helpful assistant that evaluates descriptions."},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens: 10,
		})
		if err != nil {
			return 0, fmt.Errorf("error evaluating descriptions: %w", err)
		}
		content, err := firstChoice(resp)
		if err != nil {
			return 0, err
		}
		best, err := strconv.Atoi(content)
		if err == nil && best > 0 && best <= len(descriptions) {
			return best, nil
		}
		prompt += "\nRemember, respond with ONLY the number of the best description, nothing else."
	}
	return 0, fmt.Errorf("failed to get a valid response after %d attempts", evaluationAttempts)
}

func formatDescriptions(descriptions []string) string {
	var b strings.Builder
	for i, d := range descriptions {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, d)
	}
	return b.String()
}
