package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   = stdlog.New(os.Stderr, "", 0)
	minLevel = LevelInfo
)

// ParseLevel maps a config value ("debug", "info", "warn", "error") to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// SetOutput redirects log lines, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	logger = stdlog.New(w, "", 0)
	mu.Unlock()
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	logWithLevel(LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

func logWithLevel(level Level, msg string, kv ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if rank(level) < rank(minLevel) {
		return
	}

	// 2025-01-01T00:00:00Z [LEVEL] msg key=value ...
	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339Nano))
	b.WriteString(" [")
	b.WriteString(string(level))
	b.WriteString("] ")
	b.WriteString(msg)
	writeKVs(&b, kv...)

	logger.Println(b.String())
}

func rank(l Level) int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}

// writeKVs appends key=value pairs. Non-string keys are skipped and a
// trailing odd value is ignored.
func writeKVs(b *strings.Builder, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprint(kv[i+1]))
	}
}
