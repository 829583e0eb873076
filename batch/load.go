package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugeFrog24/stimconv/stim"
)

// Extensions maps lowercase file extensions to the modality LoadFile opens
// them as.
var Extensions = map[string]stim.Modality{
	".mp4": stim.Video, ".mov": stim.Video, ".mkv": stim.Video, ".avi": stim.Video, ".webm": stim.Video,
	".wav": stim.Audio, ".mp3": stim.Audio, ".flac": stim.Audio, ".m4a": stim.Audio, ".ogg": stim.Audio,
	".png": stim.Image, ".jpg": stim.Image, ".jpeg": stim.Image, ".gif": stim.Image, ".bmp": stim.Image, ".tiff": stim.Image,
	".txt": stim.Text,
}

// LoadFile opens path as a stimulus chosen by its extension. Videos and audio
// are probed with ffprobe.
func LoadFile(ctx context.Context, path string) (stim.Stim, error) {
	mod, ok := Extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: no modality for %s", stim.ErrUnknownKind, filepath.Base(path))
	}
	switch mod {
	case stim.Video:
		return stim.LoadVideo(ctx, path)
	case stim.Audio:
		return stim.LoadAudio(ctx, path)
	case stim.Image:
		return stim.NewImageStim(path), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return stim.NewTextStim(strings.TrimSpace(string(data)), stim.WithName(filepath.Base(path))), nil
	}
}
