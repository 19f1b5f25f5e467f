package models

import "time"

// TimelineKind identifies the source record behind a timeline entry.
type TimelineKind string

const (
	TimelineKindActivity TimelineKind = "activity"
	TimelineKindFollowUp TimelineKind = "followup"
	TimelineKindCallLog  TimelineKind = "calllog"
)

// TimelineItem is one entry in an enquiry's reconciled history. Exactly one
// of Activity, FollowUp or CallLog is set, matching Kind.
type TimelineItem struct {
	Kind      TimelineKind     `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
	Activity  *EnquiryActivity `json:"activity,omitempty"`
	FollowUp  *FollowUp        `json:"follow_up,omitempty"`
	CallLog   *CallLog         `json:"call_log,omitempty"`
}

// ItemID returns the identity of the wrapped record.
func (t TimelineItem) ItemID() string {
	switch t.Kind {
	case TimelineKindActivity:
		if t.Activity != nil {
			return t.Activity.ID
		}
	case TimelineKindFollowUp:
		if t.FollowUp != nil {
			return t.FollowUp.ID
		}
	case TimelineKindCallLog:
		if t.CallLog != nil {
			return t.CallLog.ID
		}
	}
	return ""
}
