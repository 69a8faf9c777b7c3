// Package phonenumber canonicalizes phone numbers embedded in event metadata.
package phonenumber

import (
	"regexp"
	"strings"
)

var (
	numeroFieldPattern = regexp.MustCompile(`"numero":\s*"([^"]+)"`)
	nonDigitPattern    = regexp.MustCompile(`[^0-9]`)
)

const maxDigits = 11 // DDD + subscriber number

// Normalize extracts a phone number from free-form additionalData and
// reduces it to its canonical form.
//
// The structured `"numero":"..."` field is tried first; only when it is
// absent does the digits-only fallback run. The fallback concatenates every
// digit in the input, so free text that mixes a phone number with other
// digits (a time of day, for instance) yields all of them. That lossy
// behavior is the accepted contract for unstructured input.
//
// Leading zeros are trunk-prefix artifacts and are stripped one at a time;
// anything past 11 digits after stripping is discarded. The "N/A" sentinel
// and empty input normalize to "". Normalize never panics.
func Normalize(additionalData string) string {
	if additionalData == "" {
		return ""
	}

	var phoneNumber string
	if m := numeroFieldPattern.FindStringSubmatch(additionalData); m != nil {
		phoneNumber = m[1]
	} else {
		phoneNumber = nonDigitPattern.ReplaceAllString(additionalData, "")
	}

	if phoneNumber == "" || phoneNumber == "N/A" {
		return ""
	}

	for strings.HasPrefix(phoneNumber, "0") {
		phoneNumber = phoneNumber[1:]
	}

	if len(phoneNumber) > maxDigits {
		phoneNumber = phoneNumber[:maxDigits]
	}

	return phoneNumber
}
