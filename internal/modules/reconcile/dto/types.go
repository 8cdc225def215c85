package dto

import "time"

// Mode values carried in StateOutput.Mode.
const (
	ModeBootstrapping = "bootstrapping"
	ModeOnline        = "online-syncing"
	ModeOffline       = "offline-local"
)

const IdentityVerified = "verified"

// EditInput carries the fields a user changed. Dates are YYYY-MM-DD.
type EditInput struct {
	Topic      *string
	StartDate  *string
	TargetDate *string
}

type StateOutput struct {
	Topic      string    `json:"topic"`
	StartDate  string    `json:"startDate"`
	TargetDate string    `json:"targetDate"`
	UpdatedAt  time.Time `json:"updatedAt"`

	TotalDays     int  `json:"totalDays"`
	PassedDays    int  `json:"passedDays"`
	RemainingDays int  `json:"remainingDays"`
	IsValid       bool `json:"isValid"`

	Mode         string `json:"mode"`
	ModeLabel    string `json:"modeLabel"`
	IdentityKind string `json:"identityKind"`
	IdentityID   string `json:"identityId"`
	DisplayName  string `json:"displayName,omitempty"`
	AvatarRef    string `json:"avatarRef,omitempty"`

	Saving     bool   `json:"saving"`
	Dirty      bool   `json:"dirty"`
	NoticeKind string `json:"noticeKind,omitempty"`
	Notice     string `json:"notice,omitempty"`
}
