package explain

import (
	"fmt"

	"github.com/roach88/planir/internal/canonical"
	"github.com/roach88/planir/internal/plan"
)

// DomainPlan separates plan fingerprints from every other hash computed
// over canonical JSON. The suffix is bumped whenever the document form
// changes in a way that alters existing fingerprints.
const DomainPlan = "planir/plan/v1"

// JSON returns the canonical JSON encoding of Document(op).
func JSON(op plan.Operator) ([]byte, error) {
	data, err := canonical.Marshal(Document(op))
	if err != nil {
		return nil, fmt.Errorf("marshal plan document: %w", err)
	}
	return data, nil
}

// Fingerprint returns the hex SHA-256 of op's canonical JSON under
// DomainPlan. Structurally equal plans have equal fingerprints regardless
// of node identity.
func Fingerprint(op plan.Operator) (string, error) {
	data, err := JSON(op)
	if err != nil {
		return "", err
	}
	return canonical.Hash(DomainPlan, data), nil
}
