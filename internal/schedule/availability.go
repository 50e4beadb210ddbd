package schedule

import (
	"sort"

	"roomserve/internal/models"
)

// DayHasFreeSlot reports whether any gap of at least SlotMinutes remains in
// the business-hours window given the day's reservations. A day with no
// reservations is always free. Drives whether a calendar day is selectable.
func DayHasFreeSlot(existing []Interval) bool {
	if len(existing) == 0 {
		return true
	}

	sorted := append([]Interval(nil), existing...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	if sorted[0].Start-OpenMin >= SlotMinutes {
		return true
	}
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i+1].Start-sorted[i].End >= SlotMinutes {
			return true
		}
	}
	return CloseMin-sorted[len(sorted)-1].End >= SlotMinutes
}

// StartSlots returns the selectable start times: 08:30 through 18:00 stepped
// by 30 minutes. The last start is 18:00 so the one-hour default duration
// still fits before close.
func StartSlots() []int {
	var slots []int
	for m := OpenMin; m <= CloseMin-60; m += SlotMinutes {
		slots = append(slots, m)
	}
	return slots
}

// EndSlots returns the selectable end times: 09:00 through 19:00 stepped by
// 30 minutes.
func EndSlots() []int {
	var slots []int
	for m := OpenMin + SlotMinutes; m <= CloseMin; m += SlotMinutes {
		slots = append(slots, m)
	}
	return slots
}

// DefaultEndFor pre-fills an end time one hour after the chosen start,
// clamped to close of business.
func DefaultEndFor(start int) int {
	end := start + 60
	if end > CloseMin {
		return CloseMin
	}
	return end
}

// MergeConsecutive folds back-to-back reservations belonging to one booker
// in one room on one date into display blocks. Adjacent reservations where
// one's end equals the next's start collapse into a single block carrying
// every source reservation id, so a cancel on the block can fan out. Display
// aggregation only; nothing merged is ever stored.
func MergeConsecutive(resvs []models.Reservation) []models.MergedBlock {
	if len(resvs) == 0 {
		return nil
	}

	sorted := append([]models.Reservation(nil), resvs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMin < sorted[j].StartMin })

	var blocks []models.MergedBlock
	cur := blockFrom(sorted[0])
	curEnd := sorted[0].EndMin

	for _, r := range sorted[1:] {
		if r.StartMin == curEnd {
			cur.IDs = append(cur.IDs, r.ID)
			cur.EndTime = FormatClock(r.EndMin)
			curEnd = r.EndMin
			continue
		}
		blocks = append(blocks, cur)
		cur = blockFrom(r)
		curEnd = r.EndMin
	}
	return append(blocks, cur)
}

// MergeTimeline groups a day's reservations by room and booker, then merges
// each group. Feeds the timeline view, where one visual bar per booker spans
// their contiguous bookings.
func MergeTimeline(resvs []models.Reservation) []models.MergedBlock {
	groups := make(map[string][]models.Reservation)
	var order []string
	for _, r := range resvs {
		key := r.RoomID + "\x00" + r.UserName
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var blocks []models.MergedBlock
	for _, key := range order {
		blocks = append(blocks, MergeConsecutive(groups[key])...)
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].RoomName != blocks[j].RoomName {
			return blocks[i].RoomName < blocks[j].RoomName
		}
		return blocks[i].StartTime < blocks[j].StartTime
	})
	return blocks
}

func blockFrom(r models.Reservation) models.MergedBlock {
	return models.MergedBlock{
		RoomID:    r.RoomID,
		RoomName:  r.RoomName,
		UserName:  r.UserName,
		Date:      r.Date,
		StartTime: FormatClock(r.StartMin),
		EndTime:   FormatClock(r.EndMin),
		IDs:       []string{r.ID},
	}
}
