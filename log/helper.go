// Copyright 2022 The SAILAR Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package log

import "fmt"

// Helper wraps a Logger with sprintf-style convenience methods.
type Helper struct {
	logger Logger
}

// NewHelper creates a Helper around logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, format string, a ...interface{}) {
	_ = h.logger.Log(level, "msg", fmt.Sprintf(format, a...))
}

// Debugf logs a message at the debug level.
func (h *Helper) Debugf(format string, a ...interface{}) {
	h.log(LevelDebug, format, a...)
}

// Infof logs a message at the info level.
func (h *Helper) Infof(format string, a ...interface{}) {
	h.log(LevelInfo, format, a...)
}

// Warnf logs a message at the warn level.
func (h *Helper) Warnf(format string, a ...interface{}) {
	h.log(LevelWarn, format, a...)
}

// Errorf logs a message at the error level.
func (h *Helper) Errorf(format string, a ...interface{}) {
	h.log(LevelError, format, a...)
}
