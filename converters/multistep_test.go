package converters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

func TestMultistepMatchesManualChain(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	a2b := &modalityConverter{name: "a2b", in: stim.Audio, out: stim.ComplexText}
	b2c := &modalityConverter{name: "b2c", in: stim.ComplexText, out: stim.Text}

	ms, err := converters.NewMultistepFrom(c, a2b, b2c)
	require.NoError(t, err)
	assert.Equal(t, "a2b->b2c", ms.Name())
	assert.Equal(t, stim.Audio, ms.Input())
	assert.Equal(t, stim.Text, ms.Output())

	in := stim.NewAudioStim("homer.wav", 16000)
	got, err := ms.Transform(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, stim.Text, got.Modality())

	mid, err := converters.Convert(ctx, c, a2b, in)
	require.NoError(t, err)
	want, err := converters.Convert(ctx, c, b2c, mid)
	require.NoError(t, err)

	assert.Equal(t, want.(*stim.TextStim).Text(), got.(*stim.TextStim).Text())
	assert.Equal(t, want.Fingerprint(), got.Fingerprint())
	assert.Equal(t, []string{"a2b", "b2c"}, converterNames(got.History()))

	// The manual chain was served entirely from the steps' cache entries.
	assert.Equal(t, int32(1), a2b.calls.Load())
	assert.Equal(t, int32(1), b2c.calls.Load())
}

func converterNames(h stim.History) []string {
	out := make([]string, len(h))
	for i, s := range h {
		out[i] = s.Converter
	}
	return out
}

func TestMultistepFromRegistry(t *testing.T) {
	ctx := context.Background()
	r := converters.NewRegistry()
	r.MustRegister(
		registration(&modalityConverter{name: "v2a", in: stim.Video, out: stim.Audio}, false),
		registration(&modalityConverter{name: "a2ct", in: stim.Audio, out: stim.ComplexText}, true),
		registration(&modalityConverter{name: "ct2t", in: stim.ComplexText, out: stim.Text}, false),
	)

	ms, err := converters.NewMultistep(r, cache.NewMemoryCache(), stim.Video, stim.Text)
	require.NoError(t, err)
	require.Len(t, ms.Steps(), 3)
	assert.Equal(t, stim.Text, ms.Output())

	video := stim.NewVideoStim("small.mp4", stim.VideoInfo{FPS: 30, NFrames: 168})
	out, err := ms.Transform(ctx, video)
	require.NoError(t, err)
	assert.IsType(t, &stim.TextStim{}, out)
	assert.Equal(t, []string{"v2a", "a2ct", "ct2t"}, converterNames(out.History()))

	_, err = converters.NewMultistep(r, nil, stim.Text, stim.Video)
	assert.ErrorIs(t, err, converters.ErrNoConverterPath)
}

func TestMultistepValidatesSteps(t *testing.T) {
	_, err := converters.NewMultistepFrom(nil)
	assert.ErrorIs(t, err, converters.ErrInvalidPipeline)

	_, err = converters.NewMultistepFrom(nil,
		&modalityConverter{name: "v2a", in: stim.Video, out: stim.Audio},
		&modalityConverter{name: "t2t", in: stim.Text, out: stim.Text})
	assert.ErrorIs(t, err, converters.ErrInvalidPipeline)
}

func TestMultistepRejectsWrongInput(t *testing.T) {
	ms, err := converters.NewMultistepFrom(nil, &modalityConverter{name: "a2t", in: stim.Audio, out: stim.Text})
	require.NoError(t, err)
	_, err = ms.Transform(context.Background(), stim.NewTextStim("x"))
	assert.ErrorIs(t, err, converters.ErrModalityMismatch)
}

func TestMultistepPropagatesStepErrors(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	failing := &countingConverter{Err: assert.AnError}
	ms, err := converters.NewMultistepFrom(c, &converters.TextToComplexTextConverter{}, &converters.ComplexTextToTextConverter{}, failing)
	require.NoError(t, err)

	_, err = ms.Transform(ctx, stim.NewTextStim("one two"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "step 3")

	// The successful intermediate steps were cached, the failed one was not.
	failing.Err = nil
	out, err := ms.Transform(ctx, stim.NewTextStim("one two"))
	require.NoError(t, err)
	assert.Equal(t, "ONE TWO", out.(*stim.TextStim).Text())
	assert.Equal(t, 2, failing.Calls())
}

func TestVideoToTextConverter(t *testing.T) {
	ms := converters.NewVideoToTextConverter(nil)
	assert.Equal(t, "VideoToTextConverter", ms.Name())
	assert.Equal(t, stim.Video, ms.Input())
	assert.Equal(t, stim.ComplexText, ms.Output())
	steps := ms.Steps()
	require.Len(t, steps, 2)
	assert.IsType(t, &converters.VideoToAudioConverter{}, steps[0])
	assert.IsType(t, &converters.WhisperConverter{}, steps[1])
}

func TestMultistepIsMemoizable(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	a2t := &modalityConverter{name: "a2t", in: stim.Audio, out: stim.Text}
	ms, err := converters.NewMultistepFrom(c, a2t)
	require.NoError(t, err)

	memo := converters.NewMemo(ms, c)
	in := stim.NewAudioStim("homer.wav", 16000)
	_, err = memo.Convert(ctx, in)
	require.NoError(t, err)
	require.NoError(t, c.Clear(ctx))
	_, err = memo.Convert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, int32(2), a2t.calls.Load())
}
