package vcs

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var (
	ErrMalformedUsername     = errors.New("malformed username")
	ErrUnknownUsernameStyle  = errors.New("unknown username style")
	ErrUnresolvableCommitter = errors.New("unresolvable committer")
)

// UsernameStyle is how a VCS root encodes committer strings.
type UsernameStyle string

const (
	// John Doe
	StyleName UsernameStyle = "NAME"
	// johndoe
	StyleUserID UsernameStyle = "USERID"
	// johndoe@example.com
	StyleEmail UsernameStyle = "EMAIL"
	// John Doe <johndoe@example.com>
	StyleFull UsernameStyle = "FULL"
)

// DefaultEmailDomain is used for synthetic emails when the project sets none.
const DefaultEmailDomain = "teamcity"

type Identity struct {
	Name  string
	Email string
}

func ParseUsernameStyle(raw string) (UsernameStyle, error) {
	switch style := UsernameStyle(raw); style {
	case StyleName, StyleUserID, StyleEmail, StyleFull:
		return style, nil
	case "":
		return "", errors.Wrap(ErrUnknownUsernameStyle, "username style is not set")
	default:
		return "", errors.Wrapf(ErrUnknownUsernameStyle, "%q", raw)
	}
}

// ParseUsername resolves raw into an identity. Styles without an email get a
// synthetic one at emailDomain, or at DefaultEmailDomain when it is empty.
func ParseUsername(style UsernameStyle, raw, emailDomain string) (*Identity, error) {
	switch style {
	case StyleFull:
		return parseFull(raw)
	case StyleEmail:
		return parseEmail(raw), nil
	case StyleName, StyleUserID:
		return synthesizeEmail(raw, emailDomain), nil
	default:
		return nil, errors.Wrapf(ErrUnknownUsernameStyle, "%q", string(style))
	}
}

func parseFull(raw string) (*Identity, error) {
	start := strings.Index(raw, "<")
	if start == -1 {
		return nil, errors.Wrapf(ErrMalformedUsername, "no email start in %q", raw)
	}
	end := strings.LastIndex(raw, ">")
	if end <= start {
		return nil, errors.Wrapf(ErrMalformedUsername, "no email end in %q", raw)
	}
	return &Identity{
		Name:  strings.TrimSpace(raw[:start]),
		Email: raw[start+1 : end],
	}, nil
}

func parseEmail(raw string) *Identity {
	name, _, found := strings.Cut(raw, "@")
	if !found {
		name = raw
	}
	return &Identity{Name: name, Email: raw}
}

func synthesizeEmail(raw, emailDomain string) *Identity {
	if emailDomain == "" {
		emailDomain = DefaultEmailDomain
	}
	local := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))
	return &Identity{Name: raw, Email: local + "@" + emailDomain}
}
