// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import "strings"

// likeEscape is the escape clause appended to every LIKE predicate built
// from user input. Backslash works as the escape character on both sqlite
// and postgres.
const likeEscape = ` ESCAPE '\'`

// EscapeLike escapes the LIKE metacharacters % and _ plus the escape
// character itself, so a literal occurrence in searched values cannot alter
// match semantics or construct unintended patterns.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// containsPattern builds a substring-match LIKE pattern from a user term.
func containsPattern(term string) string {
	return "%" + EscapeLike(term) + "%"
}

// keyPattern translates the key-pattern convention into an escaped LIKE
// pattern: a single trailing * matches any suffix ("dev:*" matches all keys
// with prefix "dev:"); anything else matches exactly, with % and _ treated
// literally.
func keyPattern(pattern string) string {
	if strings.HasSuffix(pattern, "*") {
		return EscapeLike(strings.TrimSuffix(pattern, "*")) + "%"
	}
	return EscapeLike(pattern)
}
