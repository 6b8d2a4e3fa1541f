package neis

import (
	"regexp"
	"strings"
)

var (
	lineBreak       = regexp.MustCompile(`(?i)<br\s*/?>`)
	leadingNumber   = regexp.MustCompile(`^\s*\d+\.\s*`)
	leadingCircled  = regexp.MustCompile(`^\s*[①-⑳]\s*`)
	allergenGroup   = regexp.MustCompile(`\((?:\s*\d+[.,]?\s*)+\)`)
	asterisks       = regexp.MustCompile(`[＊*]`)
	repeatedSpace   = regexp.MustCompile(`\s{2,}`)
	trailingPunct   = regexp.MustCompile(`[.,;:]\s*$`)
	whitespaceChars = regexp.MustCompile(`\s`)
)

// NormalizeDishName strips menu numbering, allergen codes such as "(1.2.5)",
// asterisks and trailing punctuation from a single menu line.
func NormalizeDishName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = leadingNumber.ReplaceAllString(s, "")
	s = leadingCircled.ReplaceAllString(s, "")
	s = allergenGroup.ReplaceAllString(s, "")
	s = lineBreak.ReplaceAllString(s, " ")
	s = asterisks.ReplaceAllString(s, "")
	s = strings.TrimSpace(repeatedSpace.ReplaceAllString(s, " "))
	s = strings.TrimSpace(trailingPunct.ReplaceAllString(s, ""))
	return s
}

// SplitMenus splits a DDISH_NM value into normalized dish names, dropping
// lines that normalize to nothing.
func SplitMenus(ddish string) []string {
	if ddish == "" {
		return nil
	}
	lines := strings.Split(lineBreak.ReplaceAllString(ddish, "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := NormalizeDishName(line); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// MenuText renders DDISH_NM for display, one dish per line.
func MenuText(ddish string) string {
	return lineBreak.ReplaceAllString(ddish, "\n")
}

// CalorieText removes whitespace and capitalizes the unit: "612.3 kcal" becomes "612.3Kcal".
func CalorieText(cal string) string {
	return strings.Replace(whitespaceChars.ReplaceAllString(cal, ""), "kcal", "Kcal", 1)
}
