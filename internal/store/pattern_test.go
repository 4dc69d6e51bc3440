// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%off", `100\%off`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeLike(tt.in), "input %q", tt.in)
	}
}

func TestKeyPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dev:*", `dev:%`},
		{"dev:editor", `dev:editor`},
		{"100%off", `100\%off`},
		{"100%*", `100\%%`},
		{"*", "%"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, keyPattern(tt.in), "input %q", tt.in)
	}
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%Paris%", containsPattern("Paris"))
	assert.Equal(t, `%50\%%`, containsPattern("50%"))
}
