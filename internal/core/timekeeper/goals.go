package timekeeper

import (
	"sort"

	"focusflow/internal/core/model"
)

// GoalMarkers returns the ascending, de-duplicated minute thresholds for the
// given goal and division. Each marker is rounded up to a whole minute and the
// last one always equals the goal.
func GoalMarkers(goalMinutes int, division model.GoalMarkerDivision) []int {
	parts := int(division)
	switch division {
	case model.DivisionThirds, model.DivisionQuarters, model.DivisionSixths:
	default:
		return nil
	}
	if goalMinutes < parts {
		return nil
	}

	seen := make(map[int]struct{}, parts)
	markers := make([]int, 0, parts)
	for index := 1; index <= parts; index++ {
		marker := (goalMinutes*index + parts - 1) / parts
		if index == parts {
			marker = goalMinutes
		}
		if _, ok := seen[marker]; ok {
			continue
		}
		seen[marker] = struct{}{}
		markers = append(markers, marker)
	}
	sort.Ints(markers)
	return markers
}

// passedMarkers returns the markers whose threshold elapsed has reached.
func passedMarkers(markers []int, elapsed int) []int {
	passed := make([]int, 0, len(markers))
	for _, marker := range markers {
		if elapsed >= marker*60 {
			passed = append(passed, marker)
		}
	}
	return passed
}
