package domain

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindAbsent    Kind = ""
	KindAnonymous Kind = "anonymous"
	KindVerified  Kind = "verified"
)

// Identity is an opaque subject reference. The zero value is absent.
type Identity struct {
	Kind        Kind   `yaml:"kind"`
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name,omitempty"`
	AvatarRef   string `yaml:"avatar_ref,omitempty"`
}

func Anonymous(id string) Identity {
	return Identity{Kind: KindAnonymous, ID: id}
}

func Verified(id, displayName, avatarRef string) Identity {
	return Identity{Kind: KindVerified, ID: id, DisplayName: displayName, AvatarRef: avatarRef}
}

func (i Identity) IsAbsent() bool    { return i.Kind == KindAbsent || strings.TrimSpace(i.ID) == "" }
func (i Identity) IsAnonymous() bool { return !i.IsAbsent() && i.Kind == KindAnonymous }
func (i Identity) IsVerified() bool  { return !i.IsAbsent() && i.Kind == KindVerified }

// Normalize maps malformed records onto the absent identity.
func (i Identity) Normalize() Identity {
	if i.IsAbsent() {
		return Identity{}
	}
	switch i.Kind {
	case KindAnonymous, KindVerified:
		return i
	default:
		return Identity{}
	}
}

type Op string

const (
	OpResolve Op = "resolve"
	OpLogin   Op = "login"
	OpLogout  Op = "logout"
)

// Event is delivered to session subscribers. A non-nil Err reports a failed
// operation and leaves Identity as it was.
type Event struct {
	Identity Identity
	Op       Op
	Err      error
}

type LoginMode string

const (
	LoginPopup    LoginMode = "popup"
	LoginRedirect LoginMode = "redirect"
)

// DeviceDetector picks the interactive login mode for the current device.
type DeviceDetector interface {
	LoginMode() LoginMode
}

var mobileAgent = regexp.MustCompile(`Android|iPhone|iPad|iPod|Mobile`)

func DetectLoginMode(userAgent string) LoginMode {
	if mobileAgent.MatchString(userAgent) {
		return LoginRedirect
	}
	return LoginPopup
}

type UserAgentDetector struct {
	UserAgent string
}

func (d UserAgentDetector) LoginMode() LoginMode {
	return DetectLoginMode(d.UserAgent)
}
