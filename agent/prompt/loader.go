package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/system.txt
var systemRaw string

// System returns the fixed instruction message that seeds every exchange.
// The embed is compile-time; trimming is cheap, so this is safe to call
// concurrently.
func System() string {
	return strings.TrimSpace(systemRaw)
}
