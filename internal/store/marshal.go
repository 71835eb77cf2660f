package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/pulsenet/internal/ir"
)

// marshalDeclarations converts declarations to canonical JSON TEXT for
// storage. Uses RFC 8785 canonical JSON so the stored text hashes the same
// way as the in-memory list.
func marshalDeclarations(decls []ir.Declaration) (string, error) {
	data, err := ir.MarshalCanonical(ir.DeclarationsValue(decls))
	if err != nil {
		return "", fmt.Errorf("marshal declarations: %w", err)
	}
	return string(data), nil
}

// unmarshalDeclarations parses canonical JSON TEXT into declarations.
// Kinds are decoded by name via ir.Kind.UnmarshalJSON.
func unmarshalDeclarations(data string) ([]ir.Declaration, error) {
	if data == "" || data == "[]" {
		return []ir.Declaration{}, nil
	}
	var decls []ir.Declaration
	if err := json.Unmarshal([]byte(data), &decls); err != nil {
		return nil, fmt.Errorf("unmarshal declarations: %w", err)
	}
	for i := range decls {
		if decls[i].Outputs == nil {
			decls[i].Outputs = []string{}
		}
	}
	return decls, nil
}

// boolToInt maps a Go bool to SQLite's 0/1 INTEGER convention.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
