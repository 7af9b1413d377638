// Package validate provides input validation helpers for users, objectives
// and comments, shared by the HTTP API and the CLI.
package validate

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/imparable/imparable/internal/errors"
)

const (
	// MaxEmailLength is the maximum length for an email address.
	MaxEmailLength = 254
	// MaxURLLength is the maximum length for a URL.
	MaxURLLength = 2048
	// MaxObjectiveLength is the maximum length for an objective's text.
	MaxObjectiveLength = 280
	// MaxMilestoneLength is the maximum length for a milestone title.
	MaxMilestoneLength = 140
	// MaxMilestones is the maximum number of milestones per objective.
	MaxMilestones = 50
	// MaxCommentLength is the maximum length for a comment.
	MaxCommentLength = 2000
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Struct validates v against its `validate` struct tags and reports the first
// failing field as a UserError.
func Struct(v any) error {
	err := structValidator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.NewUserError("Invalid request", err.Error())
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	value := fmt.Sprint(fe.Value())
	switch fe.Tag() {
	case "required":
		return errors.NewUserError(field+" is required", "Provide a value for "+field)
	case "email":
		return errors.NewUserErrorWithField(field, value, "Invalid email address", "Use the form name@domain")
	case "max":
		return errors.NewUserErrorWithField(field, "", field+" too long", "Must be at most "+fe.Param()+" characters")
	case "oneof":
		return errors.NewUserErrorWithField(field, value, "Invalid "+field, "Must be one of: "+fe.Param())
	default:
		return errors.NewUserErrorWithField(field, value, "Invalid "+field, "Check the "+field+" value")
	}
}

// Email validates an email address.
func Email(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.NewUserError("Email cannot be empty", "Provide an email address")
	}
	if len(email) > MaxEmailLength {
		return errors.NewUserError("Email too long", "Emails must be 254 characters or fewer")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return errors.NewUserErrorWithField("email", email,
			"Invalid email address",
			"Use the form name@domain")
	}
	return nil
}

// ID validates a record id.
func ID(id string) error {
	if id == "" {
		return errors.NewUserError("ID cannot be empty", "Provide the record id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewUserErrorWithField("id", id,
			"Invalid ID format",
			"IDs are UUIDs such as 3f2c5d0e-8b1a-4c3e-9f7d-2a6b1c0d4e5f")
	}
	return nil
}

// ObjectiveText validates an objective's text.
func ObjectiveText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewUserError("Objective text cannot be empty", "Describe what you want to achieve")
	}
	if utf8.RuneCountInString(text) > MaxObjectiveLength {
		return errors.NewUserError(
			"Objective text too long",
			"Objectives must be 280 characters or fewer")
	}
	return nil
}

// Milestones validates a list of milestone titles.
func Milestones(titles []string) error {
	if len(titles) > MaxMilestones {
		return errors.NewUserError("Too many milestones", "Objectives can have at most 50 milestones")
	}
	for i, t := range titles {
		if strings.TrimSpace(t) == "" {
			return errors.NewUserErrorWithField("milestone", fmt.Sprint(i),
				"Milestone title cannot be empty",
				"Remove the empty milestone or give it a title")
		}
		if utf8.RuneCountInString(t) > MaxMilestoneLength {
			return errors.NewUserErrorWithField("milestone", fmt.Sprint(i),
				"Milestone title too long",
				"Milestone titles must be 140 characters or fewer")
		}
	}
	return nil
}

// Comment validates a comment body.
func Comment(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewUserError("Comment cannot be empty", "Write something")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return errors.NewUserError(
			"Comment too long",
			"Comments must be 2000 characters or fewer")
	}
	return nil
}

// URL validates a URL for use as the mail API endpoint.
func URL(rawURL string) error {
	if rawURL == "" {
		return errors.NewUserError("URL cannot be empty", "Provide a valid URL")
	}
	if len(rawURL) > MaxURLLength {
		return errors.NewUserError("URL too long", "URLs must be 2048 characters or fewer")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL format",
			"Provide a valid URL starting with https://")
	}

	// Check scheme
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL scheme",
			"URLs must use https:// (or http:// for localhost)")
	}

	// Check hostname exists
	hostname := parsed.Hostname()
	if hostname == "" {
		return errors.NewUserErrorWithField("url", rawURL,
			"Invalid URL: missing hostname",
			"Provide a valid URL like https://mail.example.com/send")
	}

	// Check for localhost (http allowed)
	isLocalhost := hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"

	// Require HTTPS for non-localhost
	if parsed.Scheme == "http" && !isLocalhost {
		return errors.NewUserErrorWithField("url", rawURL,
			"HTTP not allowed for external URLs",
			"Use https:// for security. HTTP is only allowed for localhost.")
	}

	// Check for internal IPs (SSRF protection)
	if !isLocalhost {
		if err := checkInternalIP(hostname); err != nil {
			return err
		}
	}

	return nil
}

// checkInternalIP checks if a hostname resolves to an internal IP.
func checkInternalIP(hostname string) error {
	// First check if it's a direct IP
	if ip := net.ParseIP(hostname); ip != nil {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Internal IP addresses not allowed",
				"The mail API must be an external service")
		}
		return nil
	}

	// Try to resolve hostname
	ips, err := net.LookupIP(hostname)
	if err != nil {
		// DNS resolution failed - this is OK, the webhook will fail later
		return nil
	}

	for _, ip := range ips {
		if isInternalIP(ip) {
			return errors.NewUserErrorWithField("url", hostname,
				"Hostname resolves to internal IP",
				"The mail API must be an external service")
		}
	}

	return nil
}

// isInternalIP checks if an IP is in a private/internal range.
func isInternalIP(ip net.IP) bool {
	// Private ranges
	privateRanges := []string{
		"10.0.0.0/8",     // RFC 1918
		"172.16.0.0/12",  // RFC 1918
		"192.168.0.0/16", // RFC 1918
		"127.0.0.0/8",    // Loopback (except explicit localhost check)
		"169.254.0.0/16", // Link-local
		"fc00::/7",       // IPv6 private
		"fe80::/10",      // IPv6 link-local
		"::1/128",        // IPv6 loopback
	}

	for _, cidr := range privateRanges {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if network.Contains(ip) {
			return true
		}
	}

	return false
}
