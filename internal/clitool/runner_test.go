package clitool

import (
	"context"
	"strings"
	"testing"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := NewExecRunner(nil)

	out, err := runner.Run(context.Background(), "sh", "-c", `printf '{"ok":true}'`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(out) != `{"ok":true}` {
		t.Errorf("stdout = %q", out)
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	runner := NewExecRunner(nil)

	_, err := runner.Run(context.Background(), "sh", "-c", "echo auth expired >&2; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "auth expired") {
		t.Errorf("error %q missing stderr detail", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	runner := NewExecRunner(nil)

	_, err := runner.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRunHonorsContext(t *testing.T) {
	runner := NewExecRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, "sh", "-c", "sleep 10"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
