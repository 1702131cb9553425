// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// LevelEnv names the variable holding the log level.
const LevelEnv = "VCARD_LOG"

// InitLogger sets up Apex with a custom handler on stderr, so piped json and
// yaml output stays clean, and a level from VCARD_LOG (default ERROR).
func InitLogger() {
	log.SetHandler(NewHandler(os.Stderr))
	SetLevel(os.Getenv(LevelEnv))
}

// SetLevel applies a level name. Unknown names fall back to ERROR.
func SetLevel(level string) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "error"
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		l = log.ErrorLevel
	}
	log.SetLevel(l)
}

// CustomHandler formats log entries as "timestamp L message k=v".
type CustomHandler struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewHandler returns a handler writing to w. The level letter is colored when
// w is a terminal.
func NewHandler(w io.Writer) *CustomHandler {
	h := &CustomHandler{w: w}
	if f, ok := w.(*os.File); ok {
		h.color = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}
	return h
}

var levelColors = map[log.Level]*color.Color{
	log.DebugLevel: color.New(color.FgHiBlack),
	log.InfoLevel:  color.New(color.FgCyan),
	log.WarnLevel:  color.New(color.FgYellow),
	log.ErrorLevel: color.New(color.FgRed),
	log.FatalLevel: color.New(color.FgRed, color.Bold),
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	level := fmt.Sprintf("%.1s", strings.ToUpper(e.Level.String()))
	if c, ok := levelColors[e.Level]; ok && h.color {
		level = c.Sprint(level)
	}

	var sb strings.Builder
	sb.WriteString(e.Message)

	names := e.Fields.Names()
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(&sb, " %s=%v", k, e.Fields.Get(k))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "%s %s %s\n", timestamp.Format("2006-01-02 15:04:05"), level, sb.String())
	return err
}
