// Package params resolves loosely-typed tool arguments into a canonical
// Request. Composite callers that front several tool providers rename the
// primary path parameter, so the resolver accepts a known alias as well.
package params

import (
	"encoding/json"
	"fmt"

	"varlens/internal/errors"
)

// Argument names accepted by the resolver.
const (
	KeyCommand   = "command"
	KeyPath      = "path"
	KeyPathAlias = "file_path"
	KeyNamespace = "namespace"
	KeyVarName   = "var_name"
	KeyLevel     = "level"
	KeyLimit     = "limit"
)

// Request is the canonical form of a tool invocation.
type Request struct {
	Command   string
	Path      string
	Namespace string
	VarName   string
	Level     string
	Limit     int
}

// Resolve normalizes a raw argument bag. The canonical path key wins over the
// alias when both are present. A missing path is left empty here; handlers
// that need one call RequirePath so the error names the canonical field.
func Resolve(args map[string]any) (*Request, error) {
	req := &Request{}

	req.Command, _ = args[KeyCommand].(string)

	if path, ok := args[KeyPath].(string); ok && path != "" {
		req.Path = path
	} else if alias, ok := args[KeyPathAlias].(string); ok {
		req.Path = alias
	}

	req.Namespace, _ = args[KeyNamespace].(string)
	req.VarName, _ = args[KeyVarName].(string)

	if level, ok := args[KeyLevel]; ok {
		str, ok := level.(string)
		if !ok {
			return nil, errors.NewInvalidParameter(KeyLevel, level, "must be a string")
		}
		if str != "" && !validLevel(str) {
			return nil, errors.NewInvalidParameter(KeyLevel, str, "must be one of error, warning, info")
		}
		req.Level = str
	}

	if raw, ok := args[KeyLimit]; ok && raw != nil {
		limit, err := coerceInt(raw)
		if err != nil {
			return nil, errors.NewInvalidParameter(KeyLimit, raw, "must be an integer")
		}
		req.Limit = limit
	}

	return req, nil
}

// RequirePath fails with a missing-parameter error when no path was resolved.
func (r *Request) RequirePath() error {
	if r.Path == "" {
		return errors.NewMissingParameter(KeyPath)
	}
	return nil
}

// RequireVarName fails with a missing-parameter error when var_name is absent.
func (r *Request) RequireVarName() error {
	if r.VarName == "" {
		return errors.NewMissingParameter(KeyVarName)
	}
	return nil
}

func validLevel(s string) bool {
	switch s {
	case "error", "warning", "info":
		return true
	}
	return false
}

// coerceInt accepts the numeric shapes JSON decoders and direct callers
// produce for the limit argument.
func coerceInt(raw any) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}
