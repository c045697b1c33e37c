package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 创建根 logger；pretty 为 true 时输出便于阅读的控制台格式
func New(level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Component 返回带组件名的子 logger，对应日志里的 [Component] 前缀
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
