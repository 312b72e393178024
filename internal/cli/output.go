package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ppiankov/truthpost/internal/model"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeClaim(w io.Writer, c model.Claim) {
	status := "pending"
	if c.Resolved {
		status = string(c.Verdict)
	}
	fmt.Fprintf(w, "%s  [%s]  %s\n", c.ID, status, c.Text)
	fmt.Fprintf(w, "    source:    %s\n", c.SourceURL)
	fmt.Fprintf(w, "    submitter: %s\n", c.Submitter)
	if c.Resolved {
		fmt.Fprintf(w, "    verdict:   %s\n", c.Explanation)
		if c.Digest != "" {
			fmt.Fprintf(w, "    digest:    %s\n", c.Digest)
		}
	}
}

func writeReputation(w io.Writer, rep map[string]int64) {
	if len(rep) == 0 {
		fmt.Fprintln(w, "No reputation recorded yet.")
		return
	}
	identities := make([]string, 0, len(rep))
	for id := range rep {
		identities = append(identities, id)
	}
	sort.Slice(identities, func(i, j int) bool {
		if rep[identities[i]] != rep[identities[j]] {
			return rep[identities[i]] > rep[identities[j]]
		}
		return identities[i] < identities[j]
	})
	for _, id := range identities {
		fmt.Fprintf(w, "%6d  %s\n", rep[id], id)
	}
}
