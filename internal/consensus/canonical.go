package consensus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Canonicalize re-encodes a JSON document so that semantically identical
// documents compare byte-equal: object keys sorted, no insignificant
// whitespace, no HTML escaping, numbers kept as written.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode json: trailing data after document")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Digest returns the CIDv1 (raw codec, sha2-256) of canonical bytes
func Digest(canonical []byte) (string, error) {
	sum, err := multihash.Sum(canonical, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash result: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
