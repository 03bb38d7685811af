package core

import "strings"

// CleanString trims surrounding whitespace from s; pass true to also fold
// it to lower case (usernames and emails are stored lowered).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
