package cohort

import _ "embed"

// Version is the release of the cohort module.
//
//go:embed VERSION
var Version string
