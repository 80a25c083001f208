package upload

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces name to a flat ASCII filename made of letters,
// digits, '.', '_' and '-'. Directory components never survive. The result
// may be empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			ascii.WriteRune(r)
		}
	}

	flat := strings.NewReplacer("/", " ", "\\", " ").Replace(ascii.String())
	joined := strings.Join(strings.Fields(flat), "_")

	var out strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out.WriteRune(r)
		case r == '.', r == '_', r == '-':
			out.WriteRune(r)
		}
	}
	return strings.Trim(out.String(), "._")
}
