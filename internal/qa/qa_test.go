package qa

import (
	"strings"
	"testing"
)

func TestFailedChecks(t *testing.T) {
	r := &Result{
		FileSize:   Check{Passed: true},
		Resolution: Check{Passed: false, Detail: "resolution is 720x1280"},
		Silence:    Check{Passed: false, Detail: "1 silent span"},
	}

	failed := r.FailedChecks()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed checks, got %v", failed)
	}
	if failed[0] != "resolution" || failed[1] != "silence" {
		t.Errorf("unexpected failed checks: %v", failed)
	}

	all := &Result{
		Passed:     true,
		FileSize:   Check{Passed: true},
		Resolution: Check{Passed: true},
		Silence:    Check{Passed: true},
	}
	if len(all.FailedChecks()) != 0 {
		t.Error("passing result must report no failed checks")
	}
}

func TestGateErrorMessage(t *testing.T) {
	err := &GateError{Result: &Result{
		FileSize:   Check{Passed: true},
		Resolution: Check{Passed: false, Detail: "resolution is 720x1280, expected exactly 1080x1920"},
		Silence:    Check{Passed: false, Detail: "1 silent span(s) >= 2s"},
	}}

	msg := err.Error()
	if !strings.HasPrefix(msg, "quality gate failed:") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "resolution (") || !strings.Contains(msg, "silence (") {
		t.Errorf("expected every failed check named with detail, got %q", msg)
	}
	if strings.Contains(msg, "fileSize") {
		t.Errorf("passing check must not appear in error, got %q", msg)
	}
}

func TestMaxFileSizeConstant(t *testing.T) {
	// 287 MiB exactly.
	if MaxFileSizeBytes != 287*1024*1024 {
		t.Errorf("unexpected ceiling: %d", int64(MaxFileSizeBytes))
	}
}
