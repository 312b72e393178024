package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClaimIDPrefix prefixes every sequential claim identifier
const ClaimIDPrefix = "claim_"

// Verdict is the fact-check outcome of a claim
type Verdict string

const (
	VerdictPending       Verdict = "pending"        // Not yet resolved
	VerdictTrue          Verdict = "true"           // Fully supported by the source
	VerdictFalse         Verdict = "false"          // Contradicted by the source
	VerdictPartiallyTrue Verdict = "partially_true" // Some parts correct, others wrong or misleading
)

// TerminalVerdicts lists the only labels a resolution may produce
var TerminalVerdicts = []Verdict{VerdictTrue, VerdictFalse, VerdictPartiallyTrue}

// IsTerminal reports whether v is one of the three resolved labels
func (v Verdict) IsTerminal() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictPartiallyTrue:
		return true
	default:
		return false
	}
}

func (v Verdict) String() string {
	return string(v)
}

// ParseVerdict decodes an oracle label. Anything outside the closed set of
// terminal labels is rejected, including "pending".
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(s)
	if !v.IsTerminal() {
		return "", fmt.Errorf("unknown verdict label %q (allowed: true, false, partially_true)", s)
	}
	return v, nil
}

// Claim is a submitted factual assertion and its resolution state
type Claim struct {
	ID          string     `json:"id"`
	Seq         int64      `json:"-"`           // Sequence number behind ID
	Text        string     `json:"text"`        // The asserted statement
	SourceURL   string     `json:"source_url"`  // Evidence backing the claim
	Submitter   string     `json:"submitter"`   // Identity of the submitting account
	Verdict     Verdict    `json:"verdict"`     // pending until resolved
	Explanation string     `json:"explanation"` // Empty until resolved
	Resolved    bool       `json:"has_been_checked"`
	Digest      string     `json:"digest,omitempty"` // CID of the agreed verdict document
	SubmittedAt time.Time  `json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// NewPendingClaim builds an unresolved claim for the given sequence value
func NewPendingClaim(seq int64, text, sourceURL, submitter string, now time.Time) Claim {
	return Claim{
		ID:          ClaimID(seq),
		Seq:         seq,
		Text:        text,
		SourceURL:   sourceURL,
		Submitter:   submitter,
		Verdict:     VerdictPending,
		Explanation: "",
		Resolved:    false,
		SubmittedAt: now.UTC(),
	}
}

// ClaimID formats a sequence value as a claim identifier
func ClaimID(seq int64) string {
	return ClaimIDPrefix + strconv.FormatInt(seq, 10)
}

// ParseClaimSeq extracts the sequence value from a claim identifier
func ParseClaimSeq(id string) (int64, bool) {
	if !strings.HasPrefix(id, ClaimIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, ClaimIDPrefix), 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Resolution is the single state transition applied to a pending claim
type Resolution struct {
	Verdict     Verdict
	Explanation string
	Digest      string
	ResolvedAt  time.Time
}

// Apply returns a copy of c with the resolution written in
func (r Resolution) Apply(c Claim) Claim {
	at := r.ResolvedAt.UTC()
	c.Verdict = r.Verdict
	c.Explanation = r.Explanation
	c.Digest = r.Digest
	c.Resolved = true
	c.ResolvedAt = &at
	return c
}

// ClaimView is the caller-facing shape of a claim
type ClaimView struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Verdict     string     `json:"verdict"`
	Explanation string     `json:"explanation"`
	SourceURL   string     `json:"source_url"`
	Submitter   string     `json:"submitter"`
	Checked     bool       `json:"has_been_checked"`
	Digest      string     `json:"digest,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// View converts a claim to its caller-facing shape
func (c Claim) View() ClaimView {
	return ClaimView{
		ID:          c.ID,
		Text:        c.Text,
		Verdict:     string(c.Verdict),
		Explanation: c.Explanation,
		SourceURL:   c.SourceURL,
		Submitter:   c.Submitter,
		Checked:     c.Resolved,
		Digest:      c.Digest,
		SubmittedAt: c.SubmittedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}
