package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/julianstephens/daylog/internal/constants"
)

var (
	hoursPattern   = regexp.MustCompile(`(?i)(\d+)\s*h`)
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*m`)
)

// SleepMinutes returns the minutes between bed and wake times, wrapping past
// midnight. ok is false when either time is missing or malformed.
func SleepMinutes(bedTime, wakeTime string) (minutes int, ok bool) {
	bed, err := time.Parse(constants.TimeFormat, bedTime)
	if err != nil {
		return 0, false
	}
	wake, err := time.Parse(constants.TimeFormat, wakeTime)
	if err != nil {
		return 0, false
	}
	bedMin := bed.Hour()*60 + bed.Minute()
	wakeMin := wake.Hour()*60 + wake.Minute()
	if wakeMin <= bedMin {
		wakeMin += 24 * 60
	}
	return wakeMin - bedMin, true
}

// ParseDurationMinutes reads free-form durations such as "2h 30m", "45m" or
// "1h". Text with no recognizable component yields 0.
func ParseDurationMinutes(s string) int {
	total := 0
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		mins, _ := strconv.Atoi(m[1])
		total += mins
	}
	return total
}

// FormatMinutes renders minutes as "Xh Ym", "Xh" or "Ym".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// AverageClock averages HH:MM clock times on a circle so that 23:30 and
// 00:30 average to 00:00. Malformed values are skipped.
func AverageClock(times []string) (string, bool) {
	var sum, n int
	ref := -1
	for _, s := range times {
		t, err := time.Parse(constants.TimeFormat, s)
		if err != nil {
			continue
		}
		m := t.Hour()*60 + t.Minute()
		if ref < 0 {
			ref = m
		}
		// Unwrap relative to the first sample.
		if m-ref > 12*60 {
			m -= 24 * 60
		} else if ref-m > 12*60 {
			m += 24 * 60
		}
		sum += m
		n++
	}
	if n == 0 {
		return "", false
	}
	avg := ((sum/n)%(24*60) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", avg/60, avg%60), true
}
