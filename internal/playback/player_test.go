package playback

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerArgsPerBinary(t *testing.T) {
	cases := []struct {
		base     string
		viaStdin bool
		args     []string
	}{
		{"ffplay", true, []string{"-autoexit", "-nodisp", "-hide_banner", "-loglevel", "error", "-i", "pipe:0"}},
		{"paplay", true, nil},
		{"aplay", true, []string{"-q"}},
		{"mpv", true, []string{"--really-quiet", "--no-video", "-"}},
		{"afplay", false, nil},
		{"some-custom-player", false, nil},
	}

	for _, tc := range cases {
		args, viaStdin := playerArgs(tc.base)
		assert.Equal(t, tc.viaStdin, viaStdin, "stdin mode for %s", tc.base)
		assert.Equal(t, tc.args, args, "args for %s", tc.base)
	}
}

func TestNewProcessPlayerDefaultsToFFplay(t *testing.T) {
	assert.Equal(t, DefaultPlayerCommand, NewProcessPlayer("").command)
	assert.Equal(t, "/usr/bin/paplay", NewProcessPlayer("/usr/bin/paplay").command)
}

// A file-only player receives the buffer through a temp file; cat stands in
// for one and exits cleanly after reading it.
func TestProcessPlayerFileFallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on cat")
	}

	p := NewProcessPlayer("cat")
	err := p.Play(context.Background(), []byte("not really audio"))
	require.NoError(t, err)
}
