// Package options holds the contract shared by every option section and the
// helpers used to compose sections into one command line.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Validator reports every problem found in a section, not just the first.
type Validator interface {
	Validate() []error
}

// IOptions is implemented by option sections that can be nested under a
// flag prefix.
type IOptions interface {
	Validator

	// AddFlags registers the section's flags, named under prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag name prefix: Join("cache", "redis") is "cache.redis.".
// No prefixes yields "".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// ValidateAll concatenates the errors of every section.
func ValidateAll(sections ...Validator) []error {
	var errs []error
	for _, s := range sections {
		errs = append(errs, s.Validate()...)
	}
	return errs
}
