package service

import "strings"

// gmailDomains ignore dots and +tags in the local part.
var gmailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// CanonicalizeEmail returns the form used for uniqueness checks. The address as typed is stored separately.
func CanonicalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}

	if gmailDomains[domain] {
		local, _, _ = strings.Cut(local, "+")
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}
