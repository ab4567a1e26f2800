package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Service string
	Level   string
	Debug   bool
	// Sinks 額外的輸出，例如送往 kafka 的 log writer
	Sinks []io.Writer
}

// New 建立服務 logger，debug 時輸出人類可讀格式
// level 設在全域，設定檔熱更新時用 SetGlobalLevel 調整
func New(opts Options) zerolog.Logger {
	var out io.Writer = os.Stdout
	if opts.Debug {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if len(opts.Sinks) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, opts.Sinks...)...)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	SetGlobalLevel(opts.Level)
	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", opts.Service).
		Logger()
}

// ParseLevel 無法解析時使用 info
func ParseLevel(level string) zerolog.Level {
	lv, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lv
}

// SetGlobalLevel 設定檔熱更新時調整全域 log level
func SetGlobalLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}
