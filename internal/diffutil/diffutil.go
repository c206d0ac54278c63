// Package diffutil computes a structural JSON merge patch between two
// values of the same type, for operators that want to report what changed
// on an Update without the caller writing their own comparator.
package diffutil

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
)

// MergePatch returns the RFC 7396 JSON merge patch that transforms prev
// into curr. It returns (nil, err) if either value fails to marshal as
// JSON. Values that marshal identically yield an empty ("{}") patch.
func MergePatch(prev, curr any) ([]byte, error) {
	prevJSON, err := json.Marshal(prev)
	if err != nil {
		return nil, err
	}
	currJSON, err := json.Marshal(curr)
	if err != nil {
		return nil, err
	}
	return jsonpatch.CreateMergePatch(prevJSON, currJSON)
}

// Changed reports whether prev and curr differ once serialized to JSON.
// It is used by operators that only need a cheap "did anything change"
// signal rather than the patch itself.
func Changed(prev, curr any) bool {
	patch, err := MergePatch(prev, curr)
	if err != nil {
		return true
	}
	return string(patch) != "{}"
}
