package logging

import (
	"fmt"
	"io"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"

	"trackguard-telemetry-go/internal/config"
)

// logdyTee forwards each rendered log line into the embedded Logdy UI.
type logdyTee struct {
	ui logdy.Logdy
}

func (t *logdyTee) Write(p []byte) (int, error) {
	t.ui.LogString(string(p))
	return len(p), nil
}

// StartLogdy brings up the embedded Logdy web viewer and returns a
// writer for teeing the console log into it, plus the viewer URL.
func StartLogdy(cfg *config.Config) (io.Writer, string, error) {
	port := strconv.Itoa(cfg.LogdyPort)
	ui := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: port,
	}, nil)
	return &logdyTee{ui: ui}, fmt.Sprintf("http://%s:%s", cfg.LogdyHost, port), nil
}
