package converters_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

func smallVideo() *stim.VideoStim {
	return stim.NewVideoStim("small.mp4", stim.VideoInfo{FPS: 30, NFrames: 168, Width: 560, Height: 320})
}

func TestFrameSamplingEveryThenHertz(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	video := smallVideo()

	out, err := converters.Convert(ctx, c, &converters.FrameSamplingConverter{Every: 3}, video)
	require.NoError(t, err)
	derived, ok := out.(*stim.DerivedVideoStim)
	require.True(t, ok)
	assert.Equal(t, 56, derived.Len())

	frames := derived.Frames()
	require.Len(t, frames, 56)
	assert.Equal(t, "small.mp4_0", frames[0].Name())
	assert.InDelta(t, 0.1, frames[0].Duration(), 1e-9)
	assert.Equal(t, 3, frames[1].Index())

	out, err = converters.Convert(ctx, c, &converters.FrameSamplingConverter{Hertz: 15}, derived)
	require.NoError(t, err)
	derived, ok = out.(*stim.DerivedVideoStim)
	require.True(t, ok)
	assert.Equal(t, 28, derived.Len())

	frames = derived.Frames()
	assert.Equal(t, "small.mp4_0", frames[0].Name())
	assert.InDelta(t, 0.2, frames[0].Duration(), 1e-9)
	assert.Equal(t, 6, frames[1].Index())
	assert.InDelta(t, 0.2, frames[1].Onset(), 1e-9)

	hist := derived.History()
	require.Len(t, hist, 2)
	assert.Equal(t, []string{"every", "hertz"}, hist.Filters())
	assert.Equal(t, "FrameSamplingConverter", hist[0].Converter)
	assert.Equal(t, "3", hist[0].Params)
	assert.Equal(t, "15", hist[1].Params)

	// The selection still refers to the original video.
	assert.Equal(t, "small.mp4", derived.Source().Filename())
	assert.Equal(t, "small.mp4", derived.Name())
}

func TestFrameSamplingLastFrameLastsUntilEnd(t *testing.T) {
	video := stim.NewVideoStim("clip.mp4", stim.VideoInfo{FPS: 10, NFrames: 25})
	out, err := (&converters.FrameSamplingConverter{Every: 10}).Transform(context.Background(), video)
	require.NoError(t, err)

	frames := out.(*stim.DerivedVideoStim).Frames()
	require.Len(t, frames, 3)
	assert.Equal(t, []int{0, 10, 20}, out.(*stim.DerivedVideoStim).FrameIndex())
	assert.InDelta(t, 1.0, frames[0].Duration(), 1e-9)
	assert.InDelta(t, 0.5, frames[2].Duration(), 1e-9)
}

func TestFrameSamplingHertzAboveFrameRate(t *testing.T) {
	video := stim.NewVideoStim("clip.mp4", stim.VideoInfo{FPS: 10, NFrames: 5})
	out, err := (&converters.FrameSamplingConverter{Hertz: 25}).Transform(context.Background(), video)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, out.(*stim.DerivedVideoStim).FrameIndex())
}

func TestFrameSamplingNeedsExactlyOneOption(t *testing.T) {
	ctx := context.Background()
	video := smallVideo()

	_, err := (&converters.FrameSamplingConverter{}).Transform(ctx, video)
	assert.Error(t, err)
	_, err = (&converters.FrameSamplingConverter{Every: 2, Hertz: 1}).Transform(ctx, video)
	assert.Error(t, err)

	noRate := stim.NewVideoStim("odd.mp4", stim.VideoInfo{NFrames: 10})
	_, err = (&converters.FrameSamplingConverter{Hertz: 1}).Transform(ctx, noRate)
	assert.Error(t, err)

	_, err = (&converters.FrameSamplingConverter{Every: 2}).Transform(ctx, stim.NewTextStim("x"))
	assert.ErrorIs(t, err, converters.ErrModalityMismatch)
}

func TestVideoToAudio(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	videoFile := filepath.Join(dir, "small.mp4")
	require.NoError(t, os.WriteFile(videoFile, []byte("not really a video"), 0o644))

	var calls int
	conv := &converters.VideoToAudioConverter{
		Extractor: &converters.MockAudioExtractor{
			ExtractAudioFunc: func(_ context.Context, in, out string) (bool, error) {
				calls++
				assert.Equal(t, videoFile, in)
				return true, os.WriteFile(out, []byte("RIFF"), 0o644)
			},
		},
	}
	video := stim.NewVideoStim(videoFile, stim.VideoInfo{FPS: 30, NFrames: 168})
	c := cache.NewMemoryCache()
	memo := converters.NewMemo(conv, c)

	out, err := memo.Convert(ctx, video)
	require.NoError(t, err)
	audio, ok := out.(*stim.AudioStim)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "small.wav"), audio.Filename())
	assert.Equal(t, "small.mp4_small.wav", audio.Name())
	assert.Equal(t, 16000, audio.SampleRate())
	assert.InDelta(t, 5.6, audio.Duration(), 1e-9)
	assert.Equal(t, []string{"VideoToAudioConverter"}, converterNames(audio.History()))

	ts := memo.Timestamp()
	_, err = memo.Convert(ctx, video)
	require.NoError(t, err)
	assert.True(t, memo.Timestamp().Equal(ts))
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Clear(ctx))
	_, err = memo.Convert(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestVideoToAudioOutputDir(t *testing.T) {
	outDir := t.TempDir()
	conv := &converters.VideoToAudioConverter{
		OutputDir: outDir,
		Extractor: &converters.MockAudioExtractor{
			ExtractAudioFunc: func(context.Context, string, string) (bool, error) { return true, nil },
		},
	}
	out, err := conv.Transform(context.Background(), stim.NewVideoStim("/videos/talk.mov", stim.VideoInfo{FPS: 25, NFrames: 50}))
	require.NoError(t, err)
	assert.Equal(t, outDir, filepath.Dir(out.Filename()))
	assert.Regexp(t, `^talk_[0-9a-f]{12}\.wav$`, filepath.Base(out.Filename()))
	assert.Equal(t, "talk.mov_talk.wav", out.Name())
}

func TestVideoToAudioOutputDirSameStem(t *testing.T) {
	ctx := context.Background()
	root, outDir := t.TempDir(), t.TempDir()
	videos := map[string]*stim.VideoStim{}
	for _, sub := range []string{"a", "b"} {
		path := filepath.Join(root, sub, "talk.mp4")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("video "+sub+" content"), 0o644))
		videos[sub] = stim.NewVideoStim(path, stim.VideoInfo{FPS: 25, NFrames: 50})
	}

	// The extractor copies the video bytes; the transcriber reads them back.
	extractor := &converters.MockAudioExtractor{
		ExtractAudioFunc: func(_ context.Context, in, out string) (bool, error) {
			data, err := os.ReadFile(in)
			if err != nil {
				return false, err
			}
			return true, os.WriteFile(out, data, 0o644)
		},
	}
	transcriber := &converters.MockSpeechTranscriber{
		TranscribeAudioFunc: func(_ context.Context, req converters.TranscriptionRequest) (converters.Transcript, error) {
			data, err := os.ReadFile(req.AudioFile)
			return converters.Transcript{Text: string(data), Language: "english"}, err
		},
	}
	ms, err := converters.NewMultistepFrom(cache.NewMemoryCache(),
		&converters.VideoToAudioConverter{OutputDir: outDir, Extractor: extractor},
		&converters.WhisperConverter{Transcriber: transcriber},
		&converters.ComplexTextToTextConverter{})
	require.NoError(t, err)

	text := func(sub string) string {
		out, err := ms.Transform(ctx, videos[sub])
		require.NoError(t, err)
		return out.(*stim.TextStim).Text()
	}
	assert.Equal(t, "video a content", text("a"))
	assert.Equal(t, "video b content", text("b"))
	assert.Equal(t, "video a content", text("a"))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestVideoToAudioNoAudioStream(t *testing.T) {
	conv := &converters.VideoToAudioConverter{
		Extractor: &converters.MockAudioExtractor{
			ExtractAudioFunc: func(context.Context, string, string) (bool, error) { return false, nil },
		},
	}
	_, err := conv.Transform(context.Background(), smallVideo())
	assert.ErrorIs(t, err, converters.ErrNoAudioStream)
}
