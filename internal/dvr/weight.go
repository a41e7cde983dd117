package dvr

// Priority is a scheduled recording's configured importance, mapped to a
// selector weight per spec §4.4.
type Priority int

const (
	PriorityUnset Priority = iota
	PriorityUnimportant
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityImportant
)

// WeightForPriority maps a DVR entry's priority to the weight the
// ServiceInstanceSelector uses for preemption, per spec §4.4: IMPORTANT
// 500, HIGH 400, NORMAL 300, LOW 200, UNIMPORTANT 100, unset 0, with 300
// as the default for any value outside the known enum (spec §8 boundary:
// "priority above known enum → weight 300").
func WeightForPriority(p Priority) int {
	switch p {
	case PriorityImportant:
		return 500
	case PriorityHigh:
		return 400
	case PriorityNormal:
		return 300
	case PriorityLow:
		return 200
	case PriorityUnimportant:
		return 100
	case PriorityUnset:
		return 0
	default:
		return 300
	}
}
