// Package naming expands user-defined filename templates for archived broadcasts.
//
// A template is free text containing placeholders. Each placeholder exists in
// an English and a French spelling:
//
//	%text%    %textNonObligatoire%   sanitized original base name
//	%day%     %jour%                 two-digit day of month
//	%month%   %mois%                 two-digit month
//	%year%    %annee%                four-digit year
//	%hour%    %heure%                two-digit hour (24h)
//	%minute%  %minutes%              two-digit minute
//
// Unknown placeholders are kept verbatim.
package naming

import (
	"fmt"
	"strings"
	"time"
)

// Token describes a supported placeholder.
type Token struct {
	English     string `json:"english"`
	French      string `json:"french"`
	Description string `json:"description"`
}

var tokens = []Token{
	{English: "%text%", French: "%textNonObligatoire%", Description: "original file name, sanitized"},
	{English: "%day%", French: "%jour%", Description: "day of month, two digits"},
	{English: "%month%", French: "%mois%", Description: "month, two digits"},
	{English: "%year%", French: "%annee%", Description: "year, four digits"},
	{English: "%hour%", French: "%heure%", Description: "hour (24h), two digits"},
	{English: "%minute%", French: "%minutes%", Description: "minute, two digits"},
}

// Tokens returns the supported placeholders.
func Tokens() []Token {
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out
}

// Generate derives an output filename from originalName and pattern.
//
// The original extension is stripped at the last dot and every character
// outside [A-Za-z0-9] in the remaining base is replaced with an underscore.
// Placeholders are substituted in a single left-to-right pass; substituted
// text is never rescanned. The result always ends with "." followed by the
// lower-cased extension. Generate never fails.
func Generate(originalName, pattern, extension string, now time.Time) string {
	values := []string{
		Sanitize(StripExtension(originalName)),
		fmt.Sprintf("%02d", now.Day()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Hour()),
		fmt.Sprintf("%02d", now.Minute()),
	}

	pairs := make([]string, 0, len(tokens)*4)
	for i, tok := range tokens {
		pairs = append(pairs, tok.English, values[i], tok.French, values[i])
	}

	name := strings.NewReplacer(pairs...).Replace(pattern)
	return name + "." + strings.ToLower(extension)
}

// StripExtension removes everything from the last dot. A name without a dot
// is returned unchanged.
func StripExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

// Sanitize replaces every character outside [A-Za-z0-9] with an underscore.
// Multi-byte characters become a single underscore.
func Sanitize(base string) string {
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
