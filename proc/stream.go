package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/leeineian/cadence/sys"
)

// streamAudio runs yt-dlp for u and writes the best audio stream to out. It
// returns once yt-dlp exits. A reader that stopped early is not an error.
func streamAudio(ctx context.Context, u string, out io.Writer) error {
	cmd := ytdlp.New().
		Format("bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best").
		Output("-").
		NoSimulate().
		NoPart().
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		BuildCommand(ctx, u)

	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}
	err := cmd.Wait()
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if isReaderGone(err, stderr.String()) {
		return nil
	}
	sys.LogVoice("yt-dlp exited with error: %v, stderr: %s", err, strings.TrimSpace(stderr.String()))
	return fmt.Errorf("yt-dlp: %w: %s", err, lastLine(stderr.String()))
}

func isReaderGone(err error, stderr string) bool {
	if errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	msg := strings.ToLower(err.Error() + " " + stderr)
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "signal: killed")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
