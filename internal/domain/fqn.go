package domain

import "strings"

// FQNSeparator joins the segments of a fully qualified name
const FQNSeparator = "."

// BuildFQN joins name segments into a fully qualified name
func BuildFQN(parts ...string) string {
	return strings.Join(parts, FQNSeparator)
}

// FQNPrefix returns the prefix used to match every FQN nested under fqn
func FQNPrefix(fqn string) string {
	return fqn + FQNSeparator
}

// ParentFQN returns the FQN without its last segment
func ParentFQN(fqn string) string {
	i := strings.LastIndex(fqn, FQNSeparator)
	if i < 0 {
		return ""
	}
	return fqn[:i]
}
