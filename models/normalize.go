package models

import (
	"regexp"
	"strings"
)

var (
	punctuationRe = regexp.MustCompile("[.,/#!$%^&*;:{}=\\-_`~()?\"'\\[\\]\\\\]")
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeText lowercases s, turns punctuation into spaces, collapses
// whitespace runs and trims. Product lookups and intent matching both
// compare on this form.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
