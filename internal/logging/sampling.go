package logging

import "go.uber.org/zap/zapcore"

// newSampledCore samples entries below Error and passes Error and above
// through untouched, so a burst of failed redeems is never thinned out.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	errors := &filteredCore{Core: core, allow: func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel }}
	rest := &filteredCore{Core: core, allow: func(l zapcore.Level) bool { return l < zapcore.ErrorLevel }}
	return zapcore.NewTee(errors, zapcore.NewSamplerWithOptions(rest, cfg.Tick, cfg.Initial, cfg.Thereafter))
}

// filteredCore admits only levels accepted by allow.
type filteredCore struct {
	zapcore.Core
	allow func(zapcore.Level) bool
}

func (c *filteredCore) Enabled(l zapcore.Level) bool {
	return c.allow(l) && c.Core.Enabled(l)
}

func (c *filteredCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.allow(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *filteredCore) With(fields []zapcore.Field) zapcore.Core {
	return &filteredCore{Core: c.Core.With(fields), allow: c.allow}
}
