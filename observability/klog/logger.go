// Package klog routes engine log messages to k8s.io/klog/v2.
package klog

import (
	"fmt"
	"strings"

	"github.com/Swind/go-task-engine/core"
	kl "k8s.io/klog/v2"
)

// DebugLevel is the klog verbosity at which Debug messages are emitted.
const DebugLevel kl.Level = 4

// Logger adapts core.Logger to klog's structured calls.
type Logger struct {
	// callDepth skips the adapter frames so klog reports the caller's file.
	callDepth int
}

var _ core.Logger = (*Logger)(nil)

// NewLogger creates a klog-backed core.Logger.
func NewLogger() *Logger {
	return &Logger{callDepth: 1}
}

// Debug logs at V(DebugLevel).
func (l *Logger) Debug(msg string, fields ...core.Field) {
	if v := kl.V(DebugLevel); v.Enabled() {
		v.InfoSDepth(l.callDepth, msg, keysAndValues(fields)...)
	}
}

func (l *Logger) Info(msg string, fields ...core.Field) {
	kl.InfoSDepth(l.callDepth, msg, keysAndValues(fields)...)
}

// Warn has no structured klog counterpart; the key/value pairs are rendered
// into the message.
func (l *Logger) Warn(msg string, fields ...core.Field) {
	if len(fields) == 0 {
		kl.WarningDepth(l.callDepth, msg)
		return
	}
	kl.WarningDepth(l.callDepth, msg, " ", formatFields(fields))
}

// Error logs via ErrorS. A field whose value is an error becomes the
// ErrorS error argument.
func (l *Logger) Error(msg string, fields ...core.Field) {
	var err error
	rest := make([]core.Field, 0, len(fields))
	for _, f := range fields {
		if e, ok := f.Value.(error); ok && err == nil {
			err = e
			continue
		}
		rest = append(rest, f)
	}
	kl.ErrorSDepth(l.callDepth, err, msg, keysAndValues(rest)...)
}

func keysAndValues(fields []core.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}

func formatFields(fields []core.Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
	}
	return b.String()
}
