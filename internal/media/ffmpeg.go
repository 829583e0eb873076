// Package media wraps the ffmpeg, ffprobe and tesseract command line tools.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNoAudioStream is returned by ExtractAudio when the input has no audio.
var ErrNoAudioStream = errors.New("media: no audio stream")

// SampleRate is the sample rate audio is extracted at.
const SampleRate = 16000

// ExtractAudio writes the audio track of videoFile to audioFile as 16 kHz mono
// PCM WAV.
func ExtractAudio(ctx context.Context, videoFile, audioFile string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", videoFile,
		"-acodec", "pcm_s16le", "-ar", strconv.Itoa(SampleRate), "-ac", "1", audioFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		out := stderr.String()
		if strings.Contains(out, "Output file does not contain any stream") ||
			strings.Contains(out, "does not contain any stream") {
			return ErrNoAudioStream
		}
		return fmt.Errorf("media: ffmpeg error: %w\nStderr: %s", err, out)
	}
	return nil
}

// ExtractFrame writes frame index of videoFile to imageFile.
func ExtractFrame(ctx context.Context, videoFile string, index int, imageFile string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", videoFile,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index), "-vframes", "1", imageFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("media: ffmpeg frame %d: %w\nStderr: %s", index, err, stderr.String())
	}
	return nil
}

// Chunk is a slice of an audio file produced by SplitAudio.
type Chunk struct {
	File  string
	Start time.Duration
}

// SplitAudio cuts audioFile into chunks of at most maxDuration. The chunk
// files are written next to audioFile; the caller removes them.
func SplitAudio(ctx context.Context, audioFile string, maxDuration time.Duration) ([]Chunk, error) {
	duration, err := Duration(ctx, audioFile)
	if err != nil {
		return nil, err
	}
	if duration <= maxDuration {
		return []Chunk{{File: audioFile}}, nil
	}

	numChunks := int(duration.Seconds()/maxDuration.Seconds()) + 1
	stem := strings.TrimSuffix(audioFile, filepath.Ext(audioFile))

	var chunks []Chunk
	for i := 0; i < numChunks; i++ {
		start := time.Duration(i) * maxDuration
		chunkFile := fmt.Sprintf("%s_chunk_%d.wav", stem, i)

		cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", audioFile,
			"-ss", fmt.Sprintf("%f", start.Seconds()), "-t", fmt.Sprintf("%f", maxDuration.Seconds()),
			"-acodec", "pcm_s16le", "-ar", strconv.Itoa(SampleRate), "-ac", "1", chunkFile)
		if err := cmd.Run(); err != nil {
			os.Remove(chunkFile)
			return chunks, fmt.Errorf("media: failed to create audio chunk: %w", err)
		}
		chunks = append(chunks, Chunk{File: chunkFile, Start: start})
	}
	return chunks, nil
}

// Duration returns the container duration of a media file.
func Duration(ctx context.Context, file string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", file)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("media: failed to get duration: %w", err)
	}
	return parseSeconds(strings.TrimSpace(string(output)))
}

func parseSeconds(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s + "s")
	if err != nil {
		return 0, fmt.Errorf("media: failed to parse duration %q: %w", s, err)
	}
	return d, nil
}

// VideoProbe holds the properties of the first video stream of a file.
type VideoProbe struct {
	FPS      float64
	NFrames  int
	Width    int
	Height   int
	Duration float64
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo runs ffprobe on file.
func ProbeVideo(ctx context.Context, file string) (VideoProbe, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-print_format", "json",
		"-show_streams", "-show_format", file)
	output, err := cmd.Output()
	if err != nil {
		return VideoProbe{}, fmt.Errorf("media: ffprobe %s: %w", file, err)
	}
	return parseProbe(output)
}

func parseProbe(output []byte) (VideoProbe, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return VideoProbe{}, fmt.Errorf("media: decode ffprobe output: %w", err)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		p := VideoProbe{Width: s.Width, Height: s.Height}
		p.FPS = parseRate(s.AvgFrameRate)
		if p.FPS == 0 {
			p.FPS = parseRate(s.RFrameRate)
		}
		dur := s.Duration
		if dur == "" {
			dur = out.Format.Duration
		}
		if d, err := strconv.ParseFloat(dur, 64); err == nil {
			p.Duration = d
		}
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			p.NFrames = n
		} else {
			p.NFrames = int(p.Duration * p.FPS)
		}
		return p, nil
	}
	return VideoProbe{}, errors.New("media: no video stream")
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
