// Package api holds the wire model of the catalog's HTTP surface, shared by
// the client and the server. It has no dialect or storage knowledge.
package api

import (
	"fmt"
	"strings"

	"github.com/refcask/refcask/internal/errs"
)

// RefSpec names one side of a diff: a reference, optionally pinned to a
// hash on that reference ("main" or "main@cafe12").
type RefSpec struct {
	Ref  string `json:"ref"`
	Hash string `json:"hash,omitempty"`
}

func (r RefSpec) String() string {
	if r.Hash == "" {
		return r.Ref
	}
	return r.Ref + "@" + r.Hash
}

// ParseRefSpec parses "ref" or "ref@hash".
func ParseRefSpec(s string) (RefSpec, error) {
	if s == "" {
		return RefSpec{}, errs.New(errs.ErrKindInvalidInput, "empty ref spec")
	}
	ref, hash, found := strings.Cut(s, "@")
	if ref == "" || (found && hash == "") {
		return RefSpec{}, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("malformed ref spec %q", s))
	}
	return RefSpec{Ref: ref, Hash: hash}, nil
}

// DiffSpecSeparator splits the two sides of a diff spec in URLs:
// "from...to".
const DiffSpecSeparator = "..."

// ParseDiffSpec parses "from...to", each side a RefSpec.
func ParseDiffSpec(s string) (from, to RefSpec, err error) {
	left, right, found := strings.Cut(s, DiffSpecSeparator)
	if !found {
		return RefSpec{}, RefSpec{}, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("diff spec %q: want \"from...to\"", s))
	}
	if from, err = ParseRefSpec(left); err != nil {
		return RefSpec{}, RefSpec{}, err
	}
	if to, err = ParseRefSpec(right); err != nil {
		return RefSpec{}, RefSpec{}, err
	}
	return from, to, nil
}

// DiffEntry is one key that differs between the two sides. A missing From
// means the key was added; a missing To means it was removed.
type DiffEntry struct {
	Key  string `json:"key"`
	From string `json:"from,omitempty"` // content address on the from side
	To   string `json:"to,omitempty"`   // content address on the to side
}

// DiffResponse is the payload of GET /api/v1/diffs/{spec}.
type DiffResponse struct {
	From    RefSpec     `json:"from"`
	To      RefSpec     `json:"to"`
	Entries []DiffEntry `json:"diffs"`
}

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}
