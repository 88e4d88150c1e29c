package provider

import (
	"strings"
	"time"
)

func durationMinutes(depart, arrive time.Time, fallback int) int {
	if depart.IsZero() || arrive.IsZero() {
		return fallback
	}
	diff := int(arrive.Sub(depart).Minutes())
	if diff <= 0 {
		return fallback
	}
	return diff
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}
