package converters

import "github.com/HugeFrog24/stimconv/stim"

// Builtins returns the registrations of the built-in converters in their
// registration order.
func Builtins() []Registration {
	return []Registration{
		{Name: "VideoToAudioConverter", Input: stim.Video, Output: stim.Audio,
			New: func() Converter { return &VideoToAudioConverter{} }},
		{Name: "FrameSamplingConverter", Input: stim.Video, Output: stim.Video,
			New: func() Converter { return &FrameSamplingConverter{Every: 1} }},
		{Name: "VisionTextConverter", Input: stim.Image, Output: stim.Text, Remote: true,
			New: func() Converter { return &VisionTextConverter{} }},
		{Name: "TesseractConverter", Input: stim.Image, Output: stim.Text,
			New: func() Converter { return &TesseractConverter{} }},
		{Name: "WhisperConverter", Input: stim.Audio, Output: stim.ComplexText, Remote: true,
			New: func() Converter { return &WhisperConverter{} }},
		{Name: "SummaryConverter", Input: stim.ComplexText, Output: stim.Text, Remote: true,
			New: func() Converter { return &SummaryConverter{} }},
		{Name: "ComplexTextToTextConverter", Input: stim.ComplexText, Output: stim.Text,
			New: func() Converter { return &ComplexTextToTextConverter{} }},
		{Name: "TextToComplexTextConverter", Input: stim.Text, Output: stim.ComplexText,
			New: func() Converter { return &TextToComplexTextConverter{} }},
		{Name: "DescriptionConverter", Input: stim.Text, Output: stim.Text, Remote: true,
			New: func() Converter { return &DescriptionConverter{} }},
	}
}

// NewDefaultRegistry returns a registry holding the built-in converters.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(Builtins()...)
	return r
}

func init() {
	DefaultRegistry.MustRegister(Builtins()...)
}
