package h264decoder

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var customFFmpegPath string

// SetFFmpegPath overrides ffmpeg discovery. An empty path restores the default search.
func SetFFmpegPath(path string) {
	customFFmpegPath = path
}

// IsAvailable reports whether ffmpeg can be located.
func IsAvailable() bool {
	_, err := findFFmpeg()
	return err == nil
}

// findFFmpeg searches the custom path, FFMPEG_PATH, PATH and common locations in that order.
func findFFmpeg() (string, error) {
	if customFFmpegPath != "" {
		if _, err := os.Stat(customFFmpegPath); err == nil {
			return customFFmpegPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customFFmpegPath)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{"/opt/homebrew/bin/ffmpeg", "/usr/local/bin/ffmpeg"}
	default:
		commonPaths = []string{"/usr/bin/ffmpeg", "/usr/local/bin/ffmpeg", "/snap/bin/ffmpeg"}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

func execRunner(ffmpegPath string, args []string, stdin []byte) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w\nstderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
