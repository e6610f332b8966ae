package app

import "github.com/kart-io/clinrag/pkg/infra/app/cliflag"

// CliOptions abstracts configuration options for reading parameters from the
// command line. Any options struct implementing this interface can be used with App.
type CliOptions interface {
	// Flags returns flag sets grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete completes the options with defaults.
	Complete() error
	// Validate validates the options.
	Validate() error
}
