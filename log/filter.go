// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package log

// FilterOption configures a filter logger.
type FilterOption func(*filter)

// FilterLevel drops log entries below the given level.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) {
		f.level = level
	}
}

type filter struct {
	logger Logger
	level  Level
}

// NewFilter wraps logger, discarding entries rejected by the options.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filter{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}
