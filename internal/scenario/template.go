package scenario

import (
	"fmt"
	"strings"
)

// Refs are the values template expressions resolve against.
type Refs struct {
	// Saved maps build.save refs to snapshot ids.
	Saved        map[string]string
	BuildID      string
	BuildProduct string
}

// ExpandTemplates replaces {{saved.<ref>}} with the id recorded by an earlier
// build.save step, {{build.id}} with the working build's id, and
// {{build.product}} with the cart product id of its current configuration.
func ExpandTemplates(s string, refs Refs) (string, error) {
	result := s
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			return "", fmt.Errorf("unterminated template expression at position %d", start)
		}
		end += start + 2 // move past "}}"

		expr := strings.TrimSpace(result[start+2 : end-2])
		value, err := resolveExpr(expr, refs)
		if err != nil {
			return "", err
		}

		result = result[:start] + value + result[end:]
	}
	return result, nil
}

func resolveExpr(expr string, refs Refs) (string, error) {
	switch expr {
	case "build.id":
		return refs.BuildID, nil
	case "build.product":
		if refs.BuildProduct == "" {
			return "", fmt.Errorf("template %q: the working build is empty", expr)
		}
		return refs.BuildProduct, nil
	}
	ref, ok := strings.CutPrefix(expr, "saved.")
	if !ok || ref == "" {
		return "", fmt.Errorf("invalid template expression: %q (expected saved.<ref>, build.id, or build.product)", expr)
	}
	id, ok := refs.Saved[ref]
	if !ok {
		return "", fmt.Errorf("template %q: no build saved with ref %q", expr, ref)
	}
	return id, nil
}
