package client

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

var (
	roleNames = jmespath.MustCompile("data[].name")
	roleAfter = jmespath.MustCompile("after")
)

// evalAny returns the raw value selected by a compiled JMESPath expression.
// A non-matching expression yields nil and no error.
func evalAny(expr *jmespath.JMESPath, payload any) (any, error) {
	v, err := expr.Search(payload)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// evalStrings returns the non-empty strings of a list selection. Other
// element types are skipped.
func evalStrings(expr *jmespath.JMESPath, payload any) ([]string, error) {
	v, err := evalAny(expr, payload)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
