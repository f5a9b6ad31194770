package entity

import (
	"strings"
	"time"
)

// Status of a pass. The only legal protocol transition is StatusUnused -> StatusUsed;
// the reverse happens only through the administrative reset.
type Status string

const (
	StatusUnused Status = "unused"
	StatusUsed   Status = "used"
)

const DefaultName = "Guest"

// Pass is one admission right, keyed by its token.
// CheckedInAt is nil while the pass is unused and written exactly once on check-in.
type Pass struct {
	Token       string     `json:"token" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Phone       *string    `json:"phone,omitempty" bson:"phone"`
	Note        *string    `json:"note,omitempty" bson:"note"`
	Status      Status     `json:"status" bson:"status"`
	Batch       string     `json:"batch,omitempty" bson:"batch,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	CheckedInAt *time.Time `json:"checkedInAt,omitempty" bson:"checkedInAt"`
}

// NewPass builds an unused pass, trimming the invitee fields and
// falling back to DefaultName for a blank name.
func NewPass(token, name, phone, note string, createdAt time.Time) *Pass {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return &Pass{
		Token:     token,
		Name:      name,
		Phone:     optional(phone),
		Note:      optional(note),
		Status:    StatusUnused,
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
	}
}

func (p *Pass) IsUsed() bool {
	return p.Status == StatusUsed
}

func (p *Pass) IsUnused() bool {
	return p.Status == StatusUnused
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
