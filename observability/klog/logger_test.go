package klog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Swind/go-task-engine/core"
	kl "k8s.io/klog/v2"
)

func captureKlog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	kl.LogToStderr(false)
	kl.SetOutput(&buf)
	t.Cleanup(func() {
		kl.Flush()
		kl.LogToStderr(true)
	})
	return &buf
}

func TestLogger_Levels(t *testing.T) {
	// Given: klog writing to a buffer at default verbosity
	buf := captureKlog(t)
	l := NewLogger()

	// When: one message is logged per level
	l.Debug("worker started", core.F("worker", 3))
	l.Info("pool started", core.F("pool", "p1"), core.F("workers", 4))
	l.Warn("start ignored", core.F("pool", "p1"))
	l.Error("task execution failed", core.F("task_id", 9), core.F("error", errors.New("boom")))
	kl.Flush()

	// Then: structured lines carry their fields and Debug is filtered
	out := buf.String()
	for _, want := range []string{
		`"pool started" pool="p1" workers=4`,
		`start ignored pool=p1`,
		`"task execution failed" err="boom" task_id=9`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "worker started") {
		t.Errorf("debug message emitted at default verbosity\n%s", out)
	}
}

func TestLogger_ErrorWithoutErrorField(t *testing.T) {
	buf := captureKlog(t)

	NewLogger().Error("initialize failed", core.F("pool", "p2"))
	kl.Flush()

	if out := buf.String(); !strings.Contains(out, `"initialize failed" pool="p2"`) {
		t.Errorf("output missing error line\n%s", out)
	}
}
