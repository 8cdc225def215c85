package domain

import (
	"fmt"

	countdown "timeblocks/internal/modules/countdown/domain"
	identity "timeblocks/internal/modules/identity/domain"
)

type Mode string

const (
	ModeBootstrapping Mode = "bootstrapping"
	ModeOnline        Mode = "online-syncing"
	ModeOffline       Mode = "offline-local"
)

type NoticeKind string

const (
	NoticeNone          NoticeKind = ""
	NoticeOffline       NoticeKind = "offline"
	NoticeLoginFailed   NoticeKind = "login-failed"
	NoticeIdentityError NoticeKind = "identity-error"
)

// Notice is a transient, dismissible message for the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

func (n Notice) IsZero() bool { return n.Kind == NoticeNone }

// SessionState is what renderers see. It is never persisted.
type SessionState struct {
	Config   countdown.Configuration
	Stats    countdown.Stats
	Identity identity.Identity
	Mode     Mode
	Saving   bool
	Dirty    bool
	Notice   Notice
}

// ModeLabel is the short status line shown next to the topic.
func (s SessionState) ModeLabel() string {
	switch {
	case s.Mode == ModeOffline:
		return "offline"
	case s.Mode == ModeBootstrapping:
		return "connecting"
	case s.Identity.IsVerified():
		return "cloud sync"
	default:
		return "local temporary mode"
	}
}

// RemoteSnapshot is one notification from the remote document. Exists is
// false when the document is absent.
type RemoteSnapshot struct {
	Patch  countdown.Patch
	Exists bool
}

// DocumentPath addresses the remote document of one user.
func DocumentPath(namespace, userID string) string {
	return fmt.Sprintf("%s/%s", namespace, userID)
}
