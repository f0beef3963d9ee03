package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Joe's Pizza", "Joe's Pizza"},
		{"ampersand", "Smith & Sons", "Smith & Sons"},
		{"tags stripped", "<b>Bold</b> Bakery", "Bold Bakery"},
		{"script removed", `Cafe<script>alert(1)</script>`, "Cafe"},
		{"whitespace trimmed", "  Dental Care  ", "Dental Care"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.input))
		})
	}
}
