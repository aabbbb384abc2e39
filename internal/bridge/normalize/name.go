package normalize

import (
	"regexp"
	"strings"
)

var (
	// regNumberSeparators matches the characters stripped from a raw
	// registration number.
	regNumberSeparators = regexp.MustCompile(`[_\-|\s]`)

	// mobileGroupPattern matches a mobile-group code inside a free-form
	// unit name: one or two letters, an optional hyphen, one to four
	// digits, terminated by a non-digit.
	mobileGroupPattern = regexp.MustCompile(`([A-Za-zА-Яа-я]{1,2}\s?-?\s?\d{1,4})\D`)
)

// CleanRegNumber strips separators and whitespace from a raw
// registration number: "A 123 - BC" becomes "A123BC".
func CleanRegNumber(raw string) string {
	return regNumberSeparators.ReplaceAllString(raw, "")
}

// DeriveName builds the canonical vehicle name from the provider's
// free-form unit name and registration number. When the free text
// contains a mobile-group code the name is "<code> <reg>", otherwise
// the cleaned registration number alone. The result is stable under
// repeated application.
func DeriveName(freeText, regNumber string) string {
	reg := CleanRegNumber(regNumber)

	m := mobileGroupPattern.FindStringSubmatch(freeText)
	if m == nil {
		return reg
	}
	code := strings.ReplaceAll(m[1], " ", "")
	if reg == "" {
		return code
	}
	return code + " " + reg
}
