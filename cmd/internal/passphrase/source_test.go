package passphrase

import (
	"os"
	"strings"
	"testing"
)

func TestSourceReadsEnvironment(t *testing.T) {
	t.Setenv("AZR_TEST_PASSPHRASE", "correct horse")
	src := NewSource("AZR_TEST_PASSPHRASE")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "correct horse" {
		t.Fatalf("unexpected passphrase %q", got)
	}
	os.Setenv("AZR_TEST_PASSPHRASE", "changed")
	if again, _ := src.Get(); again != "correct horse" {
		t.Fatalf("expected cached value, got %q", again)
	}
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("AZR_TEST_PASSPHRASE", "   ")
	if _, err := NewSource("AZR_TEST_PASSPHRASE").Get(); err == nil {
		t.Fatal("expected error for blank passphrase")
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("AZR_TEST_PASSPHRASE_UNSET").WithLabel("receipt key passphrase")
	src.stdin = nil
	_, err := src.Get()
	if err == nil {
		t.Fatal("expected error without terminal")
	}
	if !strings.Contains(err.Error(), "receipt key passphrase") || !strings.Contains(err.Error(), "AZR_TEST_PASSPHRASE_UNSET") {
		t.Fatalf("unexpected error: %v", err)
	}
}
