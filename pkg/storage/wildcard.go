package storage

import "unicode/utf8"

// matchWildcard reports whether s matches pattern, where '*' matches any
// run of characters (including none) and '?' matches exactly one character.
// Every other character matches itself byte for byte. Matching is
// case-sensitive and steps over runes; an invalid UTF-8 byte counts as one
// character.
func matchWildcard(pattern, s string) bool {
	// Greedy matching with a single backtrack point: the position of the
	// last '*' and how much of s it has consumed so far.
	var p, i int
	star, mark := -1, 0

	for i < len(s) {
		if p < len(pattern) {
			pc, pw := utf8.DecodeRuneInString(pattern[p:])
			_, sw := utf8.DecodeRuneInString(s[i:])
			switch {
			case pc == '*':
				star, mark = p, i
				p += pw
				continue
			case pc == '?' || pattern[p:p+pw] == s[i:i+sw]:
				p += pw
				i += sw
				continue
			}
		}
		if star < 0 {
			return false
		}
		// Let the last '*' absorb one more rune and retry
		_, sw := utf8.DecodeRuneInString(s[mark:])
		mark += sw
		i = mark
		p = star + 1
	}

	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
