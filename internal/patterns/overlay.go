package patterns

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// overlayFile is the on-disk shape of a pattern overlay:
//
//	patterns:
//	  identity-pan:
//	    pattern: "^[A-Z]{5}[0-9]{4}[A-Z]$"
//	    message: "PAN format is invalid"
type overlayFile struct {
	Patterns map[string]CanonicalRule `yaml:"patterns"`
}

// Load returns the default library with the overlay file at path applied on
// top. Overlay entries replace or add canonical rules per category; every
// overlay pattern must compile and every category must be a known one.
func Load(path string) (*Library, error) {
	lib := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern overlay: %w", err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing pattern overlay: %w", err)
	}

	for name, rule := range overlay.Patterns {
		cat := domain.FieldCategory(name)
		if !cat.IsValid() {
			return nil, fmt.Errorf("pattern overlay: unknown category %q", name)
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return nil, fmt.Errorf("pattern overlay: category %q: %w", name, err)
		}
		lib.rules[cat] = rule
	}

	return lib, nil
}
