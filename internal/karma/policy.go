package karma

// Action is the patient behavior that triggers a karma adjustment.
type Action string

const (
	ActionCancel         Action = "cancel"
	ActionReschedule     Action = "reschedule"
	ActionConfirm        Action = "confirm"
	ActionClaim          Action = "claim"
	ActionBook           Action = "book"
	ActionProviderCancel Action = "provider_cancel"
)

// Score bounds enforced at the store on write. The policy itself returns
// raw deltas so callers can log the intended adjustment.
const (
	MinScore = 0
	MaxScore = 100
)

// Adjustment is the signed point change the policy assigns to an action,
// with the human-readable reason recorded in history.
type Adjustment struct {
	Points int
	Reason string
}

// Delta maps an action to its point adjustment. For cancellations and
// reschedules the reward scales with how much notice the patient gave;
// hoursNotice is ignored for every other action. Provider-initiated changes
// never move the patient's score.
func Delta(action Action, hoursNotice float64) Adjustment {
	switch action {
	case ActionCancel, ActionReschedule:
		return noticeDelta(action, hoursNotice)
	case ActionConfirm:
		return Adjustment{Points: 2, Reason: "Confirmed appointment"}
	case ActionClaim:
		return Adjustment{Points: 5, Reason: "Claimed a cancelled slot"}
	case ActionBook:
		return Adjustment{Points: 5, Reason: "Booked an appointment"}
	case ActionProviderCancel:
		return Adjustment{Points: 0, Reason: "Provider-initiated change"}
	default:
		return Adjustment{Points: 0, Reason: "No adjustment"}
	}
}

func noticeDelta(action Action, hoursNotice float64) Adjustment {
	verb := "Cancelled"
	if action == ActionReschedule {
		verb = "Rescheduled"
	}
	switch {
	case hoursNotice >= 72:
		return Adjustment{Points: 5, Reason: verb + " with 72+ hours notice"}
	case hoursNotice >= 24:
		return Adjustment{Points: 2, Reason: verb + " with 24-72 hours notice"}
	case hoursNotice >= 2:
		return Adjustment{Points: -3, Reason: verb + " with under 24 hours notice"}
	default:
		return Adjustment{Points: -10, Reason: verb + " with under 2 hours notice"}
	}
}

// Clamp bounds a raw score to the valid range.
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
