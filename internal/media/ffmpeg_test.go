package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	assert.Equal(t, 30.0, parseRate("30/1"))
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.01)
	assert.Equal(t, 25.0, parseRate("25"))
	assert.Equal(t, 0.0, parseRate("0/0"))
	assert.Equal(t, 0.0, parseRate(""))
}

func TestParseSeconds(t *testing.T) {
	d, err := parseSeconds("5.568000")
	require.NoError(t, err)
	assert.Equal(t, 5568*time.Millisecond, d)

	_, err = parseSeconds("N/A")
	assert.Error(t, err)
}

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "audio", "duration": "5.6"},
			{"codec_type": "video", "width": 560, "height": 320,
			 "avg_frame_rate": "30/1", "r_frame_rate": "30/1",
			 "nb_frames": "168", "duration": "5.600000"}
		],
		"format": {"duration": "5.61"}
	}`)
	p, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 30.0, p.FPS)
	assert.Equal(t, 168, p.NFrames)
	assert.Equal(t, 560, p.Width)
	assert.Equal(t, 320, p.Height)
	assert.InDelta(t, 5.6, p.Duration, 1e-9)
}

func TestParseProbeEstimatesFrames(t *testing.T) {
	out := []byte(`{"streams": [{"codec_type": "video", "avg_frame_rate": "0/0",
		"r_frame_rate": "25/1"}], "format": {"duration": "2.0"}}`)
	p, err := parseProbe(out)
	require.NoError(t, err)
	assert.Equal(t, 25.0, p.FPS)
	assert.Equal(t, 50, p.NFrames)
}

func TestParseProbeNoVideo(t *testing.T) {
	_, err := parseProbe([]byte(`{"streams": [{"codec_type": "audio"}]}`))
	assert.Error(t, err)
}
