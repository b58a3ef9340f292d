package domain

import "strings"

// ActivityKind classifies what the bot persona is nominally doing right now,
// derived from the planning collaborator's goal records.
type ActivityKind string

const (
	ActivitySleeping    ActivityKind = "sleeping"
	ActivityWakingUp    ActivityKind = "waking_up"
	ActivityEating      ActivityKind = "eating"
	ActivityWorking     ActivityKind = "working"
	ActivityStudying    ActivityKind = "studying"
	ActivityExercising  ActivityKind = "exercising"
	ActivityRelaxing    ActivityKind = "relaxing"
	ActivitySocializing ActivityKind = "socializing"
	ActivityCommuting   ActivityKind = "commuting"
	ActivityHobby       ActivityKind = "hobby"
	ActivitySelfCare    ActivityKind = "self_care"
	ActivityOther       ActivityKind = "other"
)

// Activity is the current entry of the persona's day plan.
type Activity struct {
	Kind        ActivityKind
	Description string
	TimePoint   string // HH:MM when the activity was resolved
}

// activityKeywords maps goal-type/description substrings to activity kinds.
// First match wins; iteration order is fixed by the slice.
var activityKeywords = []struct {
	keyword string
	kind    ActivityKind
}{
	{"work", ActivityWorking},
	{"meeting", ActivityWorking},
	{"study", ActivityStudying},
	{"read", ActivityStudying},
	{"research", ActivityStudying},
	{"exercise", ActivityExercising},
	{"workout", ActivityExercising},
	{"walk", ActivityExercising},
	{"eat", ActivityEating},
	{"meal", ActivityEating},
	{"cook", ActivityEating},
	{"rest", ActivityRelaxing},
	{"relax", ActivityRelaxing},
	{"bath", ActivityRelaxing},
	{"chat", ActivitySocializing},
	{"social", ActivitySocializing},
	{"sleep", ActivitySleeping},
	{"nap", ActivitySleeping},
	{"dream", ActivitySleeping},
	{"wake", ActivityWakingUp},
	{"groom", ActivitySelfCare},
	{"makeup", ActivitySelfCare},
	{"skincare", ActivitySelfCare},
	{"self_care", ActivitySelfCare},
	{"commut", ActivityCommuting},
	{"travel", ActivityCommuting},
	{"hobby", ActivityHobby},
}

// ClassifyActivity infers the activity kind from a goal type and free-form
// description.
func ClassifyActivity(goalType, description string) ActivityKind {
	combined := strings.ToLower(goalType + " " + description)
	for _, entry := range activityKeywords {
		if strings.Contains(combined, entry.keyword) {
			return entry.kind
		}
	}
	return ActivityOther
}
