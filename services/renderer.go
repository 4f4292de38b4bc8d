package services

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches the {{NAME}} tokens in the template asset.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// Renderer merges an assembled field set into the fixed biosketch template.
// The template is loaded and validated once at startup; rendering is a pure
// substitution and yields byte-identical output for identical input.
type Renderer struct {
	template string
}

// NewRenderer loads the template asset and validates its placeholder set.
// A missing asset or a placeholder outside the assembler's contract is a
// configuration error and fails startup, not a request.
func NewRenderer(templatePath string) (*Renderer, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("biosketch template not readable at %s: %w", templatePath, err)
	}

	known := make(map[string]bool, len(PlaceholderNames))
	for _, name := range PlaceholderNames {
		known[name] = true
	}

	unknown := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(string(content), -1) {
		if !known[m[1]] {
			unknown[m[1]] = true
		}
	}
	if len(unknown) > 0 {
		names := make([]string, 0, len(unknown))
		for name := range unknown {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("biosketch template has unknown placeholders: %s", strings.Join(names, ", "))
	}

	return &Renderer{template: string(content)}, nil
}

// Render substitutes the field values into the template. Fields absent from
// the map substitute as empty strings.
func (r *Renderer) Render(fields Fields) string {
	return placeholderPattern.ReplaceAllStringFunc(r.template, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		return fields[name]
	})
}
