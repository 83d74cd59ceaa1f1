package model

import "time"

type ViolationKind string

const (
	ViolationWindowSwitch ViolationKind = "window_switch"
	ViolationScreenshot   ViolationKind = "screenshot"
	ViolationTabHidden    ViolationKind = "tab_hidden"
	ViolationCopyPaste    ViolationKind = "copy_paste"
	ViolationPhoneCall    ViolationKind = "phone_call"
)

func (k ViolationKind) Valid() bool {
	switch k {
	case ViolationWindowSwitch, ViolationScreenshot, ViolationTabHidden,
		ViolationCopyPaste, ViolationPhoneCall:
		return true
	}
	return false
}

// ViolationEvent is one detected exam-rule breach, reported by the client
// during an active attempt. Rows are append-only: created once, never
// updated, read by teachers reviewing an attempt. Detection is advisory
// (client-side listeners are circumventable); the value is deterrence and
// an audit trail, not enforcement.
// swagger:model ViolationEvent
type ViolationEvent struct {
	BaseModel
	AttemptID  uint          `gorm:"index;not null" json:"attemptId"`
	Kind       ViolationKind `gorm:"size:30;not null;index" json:"kind"`
	Detail     string        `gorm:"size:500" json:"detail"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func (ViolationEvent) TableName() string {
	return "violation_events"
}
