package models

import "strings"

const keyPrefix = "rl"

// segmentEscaper keeps caller-controlled identifiers from spilling into an
// adjacent key segment.
var segmentEscaper = strings.NewReplacer(":", "_", " ", "_")

// NewKey builds the bucket key "rl:<scope>:<identifier>". Scope names the
// limiter (global, or a route) so route limits layer on top of the global one
// without sharing buckets. An empty identifier buckets as "anonymous".
func NewKey(scope, identifier string) string {
	if identifier == "" {
		identifier = "anonymous"
	}
	return keyPrefix + ":" + segmentEscaper.Replace(scope) + ":" + segmentEscaper.Replace(identifier)
}
