package goVault

import "strings"

// factorStatusNotSetup marks a factor that exists upstream but was never
// activated by the user. Such factors cannot satisfy a challenge.
const factorStatusNotSetup = "NOT_SETUP"

// mfaFactorNames maps a factor key to the label shown to callers.
var mfaFactorNames = map[string]string{
	"google-token:software:totp": "Google Authenticator",
	"okta-token:software:totp":   "Okta Verify TOTP",
	"okta-push":                  "Okta Verify Push",
	"okta-call":                  "Okta Voice Call",
	"okta-sms":                   "Okta Text Message Code",
}

// mfaFactorTriggerRequired marks factor keys that need an explicit trigger
// call before the user holds a passcode. TOTP apps generate codes locally so
// no trigger is needed.
var mfaFactorTriggerRequired = map[string]bool{
	"google-token:software:totp": false,
	"okta-token:software:totp":   false,
	"okta-push":                  true,
	"okta-call":                  true,
	"okta-sms":                   true,
}

// providerStatusMessages maps non-success provider states to the message
// surfaced to the caller.
var providerStatusMessages = map[string]string{
	"UNAUTHENTICATED":     "User is not authenticated. Please confirm credentials.",
	"PASSWORD_WARN":       "Password is about to expire and should be changed.",
	"PASSWORD_EXPIRED":    "Password has expired. Please update your password.",
	"RECOVERY":            "Please check for a recovery token to reset your password or unlock your account.",
	"RECOVERY_CHALLENGE":  "Please verify the factor-specific recovery challenge.",
	"PASSWORD_RESET":      "Please set a new password.",
	"LOCKED_OUT":          "Your user account is locked.",
	"MFA_ENROLL_ACTIVATE": "Please activate your factor to complete enrollment.",
}

const defaultUnknownStateMessage = "MFA is required. Please confirm that you are enrolled in a supported MFA device."

// unsupportedFactors lists provider/type pairs a challenge cannot complete.
// Push verification has no passcode round-trip, so okta push is excluded.
var unsupportedFactors = map[string]struct{}{
	"okta-push": {},
}

func factorKey(provider, factorType string) string {
	return strings.ToLower(provider) + "-" + strings.ToLower(factorType)
}

// deviceName returns the user-facing label for a factor, title-casing the
// factor key when the catalog has no entry.
func deviceName(key string) string {
	if name, ok := mfaFactorNames[key]; ok {
		return name
	}
	return capitalizeWords(key)
}

func isTriggerRequired(key string) bool {
	return mfaFactorTriggerRequired[key]
}

func isSupportedFactor(key string) bool {
	_, unsupported := unsupportedFactors[key]
	return !unsupported
}

func statusMessage(state string) string {
	if msg, ok := providerStatusMessages[state]; ok {
		return msg
	}
	return defaultUnknownStateMessage
}

// usableFactors filters provider factors down to the set a caller can
// complete a challenge with, annotated with labels and trigger flags.
// Factors never set up and unsupported provider/type pairs are dropped.
func usableFactors(factors []ProviderFactor) []MfaFactor {
	out := make([]MfaFactor, 0, len(factors))
	for _, f := range factors {
		if f.Status == factorStatusNotSetup {
			continue
		}
		key := factorKey(f.Provider, f.Type)
		if !isSupportedFactor(key) {
			continue
		}
		out = append(out, MfaFactor{
			ID:              f.ID,
			Provider:        strings.ToLower(f.Provider),
			Type:            strings.ToLower(f.Type),
			Key:             key,
			Label:           deviceName(key),
			TriggerRequired: isTriggerRequired(key),
			Enrolled:        true,
		})
	}
	return out
}

// capitalizeWords upper-cases the first letter of every word, treating any
// non-letter rune as a delimiter. "okta-email" becomes "Okta-Email".
func capitalizeWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter {
			startOfWord = true
			b.WriteRune(r)
			continue
		}
		if startOfWord {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			startOfWord = false
		} else if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
