package domain

import (
	"fmt"
	"strings"
	"time"
)

const DefaultTopic = "My countdown"

// Configuration is the single record a user edits. Inverted or empty date
// ranges are accepted and surface as invalid Stats.
type Configuration struct {
	Topic      string    `json:"topic"`
	StartDate  Date      `json:"startDate"`
	TargetDate Date      `json:"targetDate"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Patch is a possibly partial snapshot. Nil fields are absent.
type Patch struct {
	Topic      *string    `json:"topic,omitempty"`
	StartDate  *Date      `json:"startDate,omitempty"`
	TargetDate *Date      `json:"targetDate,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

func Defaults(today Date) Configuration {
	return Configuration{
		Topic:      DefaultTopic,
		StartDate:  today.AddDays(-7),
		TargetDate: today.AddYears(1),
	}
}

func (c Configuration) Validate() error {
	if strings.TrimSpace(c.Topic) == "" {
		return ErrEmptyTopic
	}
	if c.StartDate.IsZero() || c.TargetDate.IsZero() {
		return fmt.Errorf("%w: start and target dates are required", ErrInvalidDate)
	}
	return nil
}

// Merge overwrites the fields present in p and leaves the rest untouched.
func (c Configuration) Merge(p Patch) Configuration {
	if p.Topic != nil {
		c.Topic = *p.Topic
	}
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.TargetDate != nil {
		c.TargetDate = *p.TargetDate
	}
	if p.UpdatedAt != nil {
		c.UpdatedAt = *p.UpdatedAt
	}
	return c
}

func (c Configuration) AsPatch() Patch {
	topic, start, target := c.Topic, c.StartDate, c.TargetDate
	p := Patch{Topic: &topic, StartDate: &start, TargetDate: &target}
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		p.UpdatedAt = &updated
	}
	return p
}

// SameContent compares the user-editable fields only.
func (c Configuration) SameContent(other Configuration) bool {
	return c.Topic == other.Topic && c.StartDate == other.StartDate && c.TargetDate == other.TargetDate
}

// Overlay returns p with every field present in q replacing its own.
func (p Patch) Overlay(q Patch) Patch {
	if q.Topic != nil {
		p.Topic = q.Topic
	}
	if q.StartDate != nil {
		p.StartDate = q.StartDate
	}
	if q.TargetDate != nil {
		p.TargetDate = q.TargetDate
	}
	if q.UpdatedAt != nil {
		p.UpdatedAt = q.UpdatedAt
	}
	return p
}

// WithoutBlanks drops an empty topic and zero dates so a remote document
// with cleared fields cannot overwrite usable values.
func (p Patch) WithoutBlanks() Patch {
	if p.Topic != nil && strings.TrimSpace(*p.Topic) == "" {
		p.Topic = nil
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		p.StartDate = nil
	}
	if p.TargetDate != nil && p.TargetDate.IsZero() {
		p.TargetDate = nil
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Topic == nil && p.StartDate == nil && p.TargetDate == nil && p.UpdatedAt == nil
}

// Complete reports whether every user-editable field is present.
func (p Patch) Complete() bool {
	return p.Topic != nil && p.StartDate != nil && p.TargetDate != nil
}

// Validate checks the fields a user edit carries.
func (p Patch) Validate() error {
	if p.Topic != nil && strings.TrimSpace(*p.Topic) == "" {
		return ErrEmptyTopic
	}
	if p.StartDate != nil && p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is empty", ErrInvalidDate)
	}
	if p.TargetDate != nil && p.TargetDate.IsZero() {
		return fmt.Errorf("%w: target date is empty", ErrInvalidDate)
	}
	return nil
}

func StringPtr(v string) *string { return &v }
func DatePtr(v Date) *Date       { return &v }
