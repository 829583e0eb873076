package converters

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HugeFrog24/stimconv/stim"
)

var (
	_ Converter = (*TesseractConverter)(nil)
	_ Converter = (*VisionTextConverter)(nil)
)

// imageFile returns a file holding the image of s. Video frames that were not
// exported yet are written to a temporary file, removed by cleanup.
func imageFile(ctx context.Context, s stim.Stim, exporter FrameExporter, tmpDir string) (path string, cleanup func(), err error) {
	if f := s.Filename(); f != "" {
		return f, func() {}, nil
	}
	frame, ok := s.(*stim.VideoFrameStim)
	if !ok {
		return "", nil, fmt.Errorf("converters: %s has no image file", s.Name())
	}
	if exporter == nil {
		exporter = RealFrameExporter{}
	}
	f, err := os.CreateTemp(tmpDir, "frame_"+strconv.Itoa(frame.Index())+"_*.png")
	if err != nil {
		return "", nil, fmt.Errorf("converters: create frame file: %w", err)
	}
	path = f.Name()
	f.Close()
	cleanup = func() { os.Remove(path) }
	if err := exporter.ExportFrame(ctx, frame.Video(), frame.Index(), path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("converters: export frame %d: %w", frame.Index(), err)
	}
	return path, cleanup, nil
}

// TesseractConverter recognizes text in an image with tesseract. The output
// is named "<image name>_<text>".
type TesseractConverter struct {
	// Lang is a tesseract language code such as "eng"; empty uses
	// tesseract's default.
	Lang string
	// Engine defaults to RealOCREngine.
	Engine OCREngine
	// Frames exports video frames; defaults to RealFrameExporter.
	Frames FrameExporter
	// TmpDir holds exported frames; empty uses the system default.
	TmpDir string
}

func (c *TesseractConverter) Name() string          { return "TesseractConverter" }
func (c *TesseractConverter) Input() stim.Modality  { return stim.Image }
func (c *TesseractConverter) Output() stim.Modality { return stim.Text }

func (c *TesseractConverter) Config() any {
	return struct {
		Lang string `msgpack:"lang"`
	}{c.Lang}
}

func (c *TesseractConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	path, cleanup, err := imageFile(ctx, s, c.Frames, c.TmpDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	engine := c.Engine
	if engine == nil {
		engine = RealOCREngine{}
	}
	text, err := engine.Recognize(ctx, path, c.Lang)
	if err != nil {
		return nil, err
	}
	return stim.NewTextStim(text, derivedOpts(c, s, text, stim.Step{Params: c.Lang})...), nil
}

// DefaultVisionPrompt asks the model to transcribe visible text only.
const DefaultVisionPrompt = "Transcribe all text visible in this image exactly as written. " +
	"Respond with the text only, without commentary. If there is no text, respond with an empty message."

// VisionTextConverter reads text from an image with an OpenAI vision model.
type VisionTextConverter struct {
	Model  string
	Prompt string
	// Client defaults to an OpenAI client using OPENAI_API_KEY.
	Client ChatCompleter
	Frames FrameExporter
	TmpDir string
}

func (c *VisionTextConverter) Name() string          { return "VisionTextConverter" }
func (c *VisionTextConverter) Input() stim.Modality  { return stim.Image }
func (c *VisionTextConverter) Output() stim.Modality { return stim.Text }

func (c *VisionTextConverter) model() string {
	if c.Model == "" {
		return openai.GPT4o
	}
	return c.Model
}

func (c *VisionTextConverter) prompt() string {
	if c.Prompt == "" {
		return DefaultVisionPrompt
	}
	return c.Prompt
}

func (c *VisionTextConverter) Config() any {
	return struct {
		Model  string `msgpack:"model"`
		Prompt string `msgpack:"prompt"`
	}{c.model(), c.prompt()}
}

func (c *VisionTextConverter) Transform(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(c, s); err != nil {
		return nil, err
	}
	client, err := chatClient(c.Client)
	if err != nil {
		return nil, err
	}
	path, cleanup, err := imageFile(ctx, s, c.Frames, c.TmpDir)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("converters: read image %s: %w", filepath.Base(path), err)
	}
	dataURL := "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model(),
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: c.prompt()},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error reading image text: %w", err)
	}
	text, err := firstChoice(resp)
	if err != nil {
		return nil, err
	}
	return stim.NewTextStim(text, derivedOpts(c, s, text, stim.Step{Params: c.model()})...), nil
}
