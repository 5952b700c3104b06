package index

// wildcardMatch reports whether s matches the glob pattern, where `*`
// matches any run of characters (including none) and `?` matches exactly
// one character. Plain recursive-descent matcher; patterns in this index
// are short (field values), so no need for the DP/automaton machinery a
// general glob library would bring.
func wildcardMatch(pattern, s string) bool {
	return wildcardMatchRunes([]rune(pattern), []rune(s))
}

func wildcardMatchRunes(pattern, s []rune) bool {
	if len(pattern) == 0 {
		return len(s) == 0
	}
	switch pattern[0] {
	case '*':
		// Try consuming zero or more characters of s.
		for i := 0; i <= len(s); i++ {
			if wildcardMatchRunes(pattern[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return wildcardMatchRunes(pattern[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != pattern[0] {
			return false
		}
		return wildcardMatchRunes(pattern[1:], s[1:])
	}
}
