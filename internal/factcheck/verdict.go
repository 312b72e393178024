package factcheck

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/truthpost/internal/model"
)

// Result is the verdict document a judgment must reduce to
type Result struct {
	Verdict     model.Verdict
	Explanation string
}

type resultDoc struct {
	Verdict     *string `json:"verdict"`
	Explanation *string `json:"explanation"`
}

// ParseResult decodes an agreed verdict document. The object must carry a
// terminal "verdict" label and may carry a string "explanation"; any other
// key is rejected.
func ParseResult(doc []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()

	var raw resultDoc
	if err := dec.Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}
	if dec.More() {
		return Result{}, fmt.Errorf("%w: trailing data after verdict object", ErrInvalidVerdict)
	}
	if raw.Verdict == nil {
		return Result{}, fmt.Errorf("%w: missing \"verdict\"", ErrInvalidVerdict)
	}

	v, err := model.ParseVerdict(*raw.Verdict)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}

	res := Result{Verdict: v}
	if raw.Explanation != nil {
		res.Explanation = *raw.Explanation
	}
	return res, nil
}
