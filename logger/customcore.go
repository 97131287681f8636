package logger

import (
	"go.uber.org/zap/zapcore"
)

// customCore keeps the 'application' and 'version' fields at the tail of every entry.
type customCore struct {
	zapcore.Core
}

// With adds structured context to the Core.
func (c *customCore) With(fields []zapcore.Field) zapcore.Core {
	return &customCore{c.Core.With(fields)}
}

// Write serializes the Entry and any Fields supplied at the log site and writes them to their destination.
func (c *customCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	var tail []zapcore.Field
	reordered := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		if field.Key == "application" || field.Key == "version" {
			tail = append(tail, field)
			continue
		}
		reordered = append(reordered, field)
	}

	return c.Core.Write(entry, append(reordered, tail...))
}

// Check determines whether the supplied Entry should be logged.
func (c *customCore) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, c)
	}
	return checkedEntry
}

// Sync flushes buffered logs (if any).
func (c *customCore) Sync() error {
	return c.Core.Sync()
}
