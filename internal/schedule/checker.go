package schedule

import "errors"

// Domain rejections surfaced to callers verbatim. These are expected
// outcomes, not failures: adapters render them as user-facing messages and
// keep serving.
var (
	ErrRangeInvalid = errors.New("end time must be after start time")
	ErrOutsideHours = errors.New("outside business hours (08:30-19:00)")
	ErrGranularity  = errors.New("times must fall on 30-minute boundaries")
	ErrRoomUnknown  = errors.New("room does not exist")
	ErrOverlap      = errors.New("time range overlaps an existing reservation")
)

// CheckBookable decides whether a candidate interval may be booked against
// the room's existing reservations for the same date. Rules apply in order
// and the first failing rule's reason wins. The decision is pure: given the
// same snapshot it always returns the same verdict.
func CheckBookable(candidate Interval, roomKnown bool, existing []Interval) error {
	if candidate.Start >= candidate.End {
		return ErrRangeInvalid
	}
	if candidate.Start < OpenMin || candidate.End > CloseMin {
		return ErrOutsideHours
	}
	if candidate.Start%SlotMinutes != 0 || candidate.End%SlotMinutes != 0 {
		return ErrGranularity
	}
	if !roomKnown {
		return ErrRoomUnknown
	}
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return ErrOverlap
		}
	}
	return nil
}
