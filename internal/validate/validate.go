// Package validate holds the client-side checks run before any request is
// sent: account fields, patient intake fields and upload files.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

var fullNameRegex = regexp.MustCompile(`^[a-zA-Z\s\-']+$`)

// Email validates an address with the same rule chain the sign-up form uses.
func Email(email string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return errors.New("email is required")
	case len(email) < 5:
		return errors.New("email is too short")
	case len(email) > 254:
		return errors.New("email is too long")
	case strings.Count(email, "@") != 1:
		return errors.New("email must contain exactly one @ symbol")
	case strings.Contains(email, ".."):
		return errors.New("email cannot contain consecutive dots")
	case strings.HasPrefix(email, ".") || strings.HasSuffix(email, "."):
		return errors.New("email cannot start or end with a dot")
	}
	local, domain, _ := strings.Cut(email, "@")
	switch {
	case local == "":
		return errors.New("email must have a username before @")
	case len(local) > 64:
		return errors.New("email username part is too long")
	case domain == "":
		return errors.New("email must have a domain after @")
	case !strings.Contains(domain, "."):
		return errors.New("email domain must contain a dot")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("enter a valid email address")
	}
	return nil
}

// Password enforces the account password policy.
func Password(password string) error {
	switch {
	case password == "":
		return errors.New("password is required")
	case len(password) < 6:
		return errors.New("password must be at least 6 characters long")
	case len(password) > 128:
		return errors.New("password is too long (max 128 characters)")
	}
	return nil
}

// FullName validates an account or patient name.
func FullName(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return errors.New("full name is required")
	case len(name) < 2:
		return errors.New("full name must be at least 2 characters long")
	case len(name) > 100:
		return errors.New("full name is too long (max 100 characters)")
	case !fullNameRegex.MatchString(name):
		return errors.New("full name can only contain letters, spaces, hyphens, and apostrophes")
	}
	return nil
}

// NormalizePhone strips formatting, requires exactly 10 digits and returns
// the canonical XXX-XXX-XXXX form. Empty input is allowed and kept empty.
// The normalization is idempotent.
func NormalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 10 {
		return "", errors.New("phone number must be exactly 10 digits")
	}
	return fmt.Sprintf("%s-%s-%s", d[0:3], d[3:6], d[6:10]), nil
}

const maxPatientAgeYears = 120

// DateOfBirth rejects future dates and dates implying an age above 120
// years. The boundary is date-based: a birth date exactly 120 years before
// today is accepted, one day earlier is not. Empty input is allowed.
func DateOfBirth(dob string, today time.Time) error {
	if strings.TrimSpace(dob) == "" {
		return nil
	}
	birth, err := parseDate(dob)
	if err != nil {
		return errors.New("invalid date of birth")
	}
	today = truncateToDay(today)
	birth = truncateToDay(birth)
	if birth.After(today) {
		return errors.New("date of birth cannot be in the future")
	}
	if birth.Before(today.AddDate(-maxPatientAgeYears, 0, 0)) {
		return fmt.Errorf("age cannot exceed %d years", maxPatientAgeYears)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date")
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MaxUploadBytes bounds accepted image files.
const MaxUploadBytes = 10 * 1024 * 1024

var allowedUploadExts = map[string]bool{
	".jpg":   true,
	".jpeg":  true,
	".png":   true,
	".dcm":   true,
	".dicom": true,
}

// UploadFile checks the file name extension and size before a scan is
// submitted. The backend performs its own image-type sanity check on top.
func UploadFile(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedUploadExts[ext] {
		return errors.New("unsupported file type: use JPEG, PNG or DICOM images")
	}
	if size <= 0 {
		return errors.New("file is empty")
	}
	if size > MaxUploadBytes {
		return errors.New("file is too large (max 10 MB)")
	}
	return nil
}

const maxShareNotesLen = 1000

// ShareForm validates the doctor-facing share request fields and returns
// every problem found.
func ShareForm(doctorName, doctorEmail, notes string) []error {
	var errs []error
	if len(strings.TrimSpace(doctorName)) < 2 {
		errs = append(errs, errors.New("doctor's name must be at least 2 characters long"))
	}
	if Email(doctorEmail) != nil {
		errs = append(errs, errors.New("enter a valid doctor email address"))
	}
	if len(notes) > maxShareNotesLen {
		errs = append(errs, fmt.Errorf("notes must be less than %d characters", maxShareNotesLen))
	}
	return errs
}
