package factcheck

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/model"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    Result
		wantErr bool
	}{
		{"true", `{"explanation":"ok","verdict":"true"}`, Result{model.VerdictTrue, "ok"}, false},
		{"partially true", `{"verdict":"partially_true","explanation":""}`, Result{model.VerdictPartiallyTrue, ""}, false},
		{"no explanation", `{"verdict":"false"}`, Result{model.VerdictFalse, ""}, false},
		{"null explanation", `{"verdict":"false","explanation":null}`, Result{model.VerdictFalse, ""}, false},
		{"missing verdict", `{"explanation":"x"}`, Result{}, true},
		{"null verdict", `{"verdict":null}`, Result{}, true},
		{"uppercase label", `{"verdict":"TRUE"}`, Result{}, true},
		{"pending", `{"verdict":"pending"}`, Result{}, true},
		{"extra key", `{"verdict":"true","source":"x"}`, Result{}, true},
		{"array", `["true"]`, Result{}, true},
		{"not json", `true, definitely`, Result{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResult([]byte(tt.doc))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidVerdict) {
					t.Fatalf("expected ErrInvalidVerdict, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Cats are mammals {content}", "Cats are mammals.")

	if !strings.Contains(p, "CLAIM: Cats are mammals {content}\n") {
		t.Errorf("claim text must be inserted verbatim:\n%s", p)
	}
	if !strings.Contains(p, "WEB CONTENT:\nCats are mammals.\n") {
		t.Errorf("page text missing:\n%s", p)
	}
	for _, label := range model.TerminalVerdicts {
		if !strings.Contains(p, `"`+string(label)+`"`) {
			t.Errorf("prompt does not describe label %q", label)
		}
	}
}

func TestValidateSubmission(t *testing.T) {
	text, err := ValidateSubmission("  <b>Water</b> boils at 100 &deg;C &amp; sea level <script>alert(1)</script> ", "https://example.org/water")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Water boils at 100 °C & sea level" {
		t.Errorf("unexpected sanitized text: %q", text)
	}

	bad := []struct {
		name, text, url string
	}{
		{"empty", "   ", "https://example.org"},
		{"markup only", "<img src=x>", "https://example.org"},
		{"too long", strings.Repeat("a", MaxClaimChars+1), "https://example.org"},
		{"ftp", "claim", "ftp://example.org/file"},
		{"relative", "claim", "/wiki/Python"},
		{"no host", "claim", "https://"},
		{"invalid utf8", "claim \xff", "https://example.org"},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateSubmission(tt.text, tt.url); !errors.Is(err, ErrInvalidSubmission) {
				t.Errorf("expected ErrInvalidSubmission, got %v", err)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&consensus.DisagreementError{Evaluations: 3}) {
		t.Error("disagreement should be retryable")
	}
	if IsRetryable(ErrInvalidVerdict) || IsRetryable(ErrNotFound) || IsRetryable(ErrAlreadyResolved) {
		t.Error("terminal errors must not be retryable")
	}
	wrapped := fmt.Errorf("%w: %w", ErrInvalidVerdict, consensus.ErrAgreementFailure)
	if IsRetryable(wrapped) {
		t.Error("an invalid verdict stays terminal even when it wraps an agreement failure")
	}
}
