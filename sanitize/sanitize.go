// Package sanitize turns crawler and state names into safe file names.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// replacements spell out characters that would otherwise be dropped.
var replacements = map[rune]string{ //nolint:gochecknoglobals
	'ä': "ae", 'Ä': "Ae", 'ö': "oe", 'Ö': "Oe",
	'ü': "ue", 'Ü': "Ue", 'ß': "ss",
	'&': "_and_", '+': "_plus_", '@': "_at_",
	'€': "Euro", '£': "Pound", '$': "Dollar", '¥': "Yen",
}

// unsafe characters become underscores: they are forbidden on some file
// systems or need quoting in a shell.
const unsafe = "\"':/\\()?*\n\t\r {|}[¦]!#%<>~^`°§"

// FileName returns name reduced to printable ASCII that is safe as a file
// name. Accents are dropped, runs of underscores collapse and leading or
// trailing dashes are trimmed.
func FileName(name string) string {
	var sb strings.Builder

	for _, r := range name {
		switch {
		case strings.ContainsRune(unsafe, r):
			sb.WriteRune('_')
		case replacements[r] != "":
			sb.WriteString(replacements[r])
		default:
			sb.WriteRune(r)
		}
	}

	decomposed := norm.NFD.String(sb.String())
	sb.Reset()

	for _, r := range decomposed {
		switch {
		case unicode.IsMark(r):
		case r < ' ' || r > '~':
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}

	out := sb.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}

	return strings.TrimSuffix(strings.TrimPrefix(out, "-"), "-")
}
