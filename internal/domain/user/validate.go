package user

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	medishare_errors "medishare/pkg/errors"
)

const MinPasswordLength = 6

var (
	mobilePattern  = regexp.MustCompile(`^[0-9]{10}$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if email == "" {
		return medishare_errors.Validation("email", "Please include a valid email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return medishare_errors.Validation("email", "Please include a valid email")
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return medishare_errors.Validation("password", "Please enter a password with 6 or more characters")
	}
	return nil
}

// ValidateMobile accepts an empty value or exactly ten digits.
func ValidateMobile(mobile string) error {
	if mobile == "" || mobilePattern.MatchString(mobile) {
		return nil
	}
	return medishare_errors.Validation("mobileNumber", "Mobile number must be 10 digits")
}

func ValidatePincode(pincode string) error {
	if pincode == "" || pincodePattern.MatchString(pincode) {
		return nil
	}
	return medishare_errors.Validation("address.pincode", "Pincode should be a valid Indian pincode")
}

func ValidateWebsite(website string) error {
	if website == "" {
		return nil
	}
	u, err := url.Parse(website)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.Contains(u.Host, ".") {
		return medishare_errors.Validation("website", "Please enter a valid URL (e.g., https://example.com)")
	}
	return nil
}
