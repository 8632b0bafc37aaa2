package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ParseLevel parses an operator-supplied level name. It is case-insensitive
// and accepts "warning" as an alias for warn.
func ParseLevel(s string) (zapcore.Level, error) {
	switch name := strings.ToLower(strings.TrimSpace(s)); name {
	case "warning":
		return zapcore.WarnLevel, nil
	case "":
		return zapcore.InfoLevel, nil
	default:
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(name)); err != nil {
			return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
		}
		return lvl, nil
	}
}
