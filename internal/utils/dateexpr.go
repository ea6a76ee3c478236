package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/julianstephens/daylog/internal/constants"
)

var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ResolveDate turns a user-supplied date expression into midnight of that
// day in now's location. It accepts YYYY-MM-DD, "today", or natural phrases
// such as "yesterday" or "last friday".
func ResolveDate(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, "today") {
		return midnight(now), nil
	}

	if t, err := time.ParseInLocation(constants.DateFormat, expr, now.Location()); err == nil {
		return t, nil
	}

	r, err := dateParser.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", expr)
	}
	return midnight(r.Time.In(now.Location())), nil
}

// ResolveMonth accepts YYYY-MM or any expression ResolveDate understands and
// returns the first of that month.
func ResolveMonth(expr string, now time.Time) (time.Time, error) {
	if t, err := ParseMonthKey(strings.TrimSpace(expr), now.Location()); err == nil {
		return t, nil
	}
	t, err := ResolveDate(expr, now)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
