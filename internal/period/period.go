// Package period turns a user's time-range choice into a concrete pair of instants.
//
// Resolution is pure: the caller passes "now", so identical inputs always produce
// identical results.
package period

import (
	"math"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Kind is the period a user picked.
type Kind int

// Period kinds.
const (
	LastHour Kind = iota
	Today
	LastWeek
	Custom
)

// maxTypoDistance is the largest edit distance for which ParseKind suggests a name.
const maxTypoDistance = 3

//nolint:gochecknoglobals // Lookup table
var kindNames = map[Kind]string{
	LastHour: "last-hour",
	Today:    "today",
	LastWeek: "last-week",
	Custom:   "custom",
}

//nolint:gochecknoglobals // Lookup table
var kindAliases = map[string]Kind{
	"last-hour": LastHour,
	"lasthour":  LastHour,
	"hour":      LastHour,
	"today":     Today,
	"last-week": LastWeek,
	"lastweek":  LastWeek,
	"week":      LastWeek,
	"custom":    Custom,
}

// String returns the canonical CLI name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds returns every kind in display order.
func Kinds() []Kind {
	return []Kind{LastHour, Today, LastWeek, Custom}
}

// ParseKind parses a period name such as "last-week" or "lastWeek".
// Unknown names fail with ErrUnknownPeriod and, when one is close, a suggestion.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}

	err := roierr.WithDetails(roierr.ErrUnknownPeriod, map[string]string{"period": name})
	if s := suggestKind(key); s != "" {
		return 0, roierr.WithSuggestion(err, "did you mean '"+s+"'?")
	}
	return 0, roierr.WithSuggestion(err, "use one of: last-hour, today, last-week, custom")
}

func suggestKind(input string) string {
	minDist := math.MaxInt
	var suggestion string
	for _, k := range Kinds() {
		dist := levenshtein.ComputeDistance(input, k.String())
		if dist < minDist {
			minDist = dist
			suggestion = k.String()
		}
	}
	if minDist <= maxTypoDistance {
		return suggestion
	}
	return ""
}

// Selector is a period choice plus the raw custom date inputs.
// From and To are only read for Custom.
type Selector struct {
	Kind Kind
	From string
	To   string
}

// Preset returns a selector for a non-custom kind.
func Preset(k Kind) Selector {
	return Selector{Kind: k}
}

// Range returns a Custom selector over the given date inputs.
func Range(from, to string) Selector {
	return Selector{Kind: Custom, From: from, To: to}
}

// Resolved is a concrete period with Start <= End <= now.
type Resolved struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EndsAtNow reports whether the period ends at now, compared at one-second granularity.
func (r Resolved) EndsAtNow(now time.Time) bool {
	return r.End.Unix() == now.Unix()
}

// Duration returns End - Start.
func (r Resolved) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Resolve validates the inputs and returns the period they describe.
// Checks run in a fixed order and the first failure wins:
// no address, missing date, unparsable date, start after end, date in the future.
func Resolve(addresses []string, sel Selector, now time.Time) (Resolved, error) {
	if len(addresses) == 0 {
		return Resolved{}, roierr.ErrNoAddressSelected
	}

	switch sel.Kind {
	case LastHour:
		return Resolved{Start: now.Add(-time.Hour), End: now}, nil
	case Today:
		y, m, d := now.Date()
		return Resolved{Start: time.Date(y, m, d, 0, 0, 0, 0, now.Location()), End: now}, nil
	case LastWeek:
		return Resolved{Start: now.Add(-7 * 24 * time.Hour), End: now}, nil
	case Custom:
		return resolveCustom(sel.From, sel.To, now)
	default:
		return Resolved{}, roierr.WithDetails(roierr.ErrUnknownPeriod, map[string]string{"period": sel.Kind.String()})
	}
}

func resolveCustom(from, to string, now time.Time) (Resolved, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return Resolved{}, roierr.ErrMissingDateField
	}

	start, err := ParseDate(from, now.Location())
	if err != nil {
		return Resolved{}, err
	}
	end, err := ParseDate(to, now.Location())
	if err != nil {
		return Resolved{}, err
	}

	if start.After(end) {
		return Resolved{}, roierr.ErrInvalidPeriodOrder
	}
	if end.After(now) || start.After(now) {
		return Resolved{}, roierr.ErrFutureDateNotAllowed
	}
	return Resolved{Start: start, End: end}, nil
}

//nolint:gochecknoglobals // Accepted input layouts, most specific last
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseDate parses a date input in loc. Date-only values mean local midnight.
// Accepted forms: 2006-01-02, 2006-01-02T15:04, 2006-01-02T15:04:05 and RFC 3339.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, roierr.WithDetails(roierr.ErrInvalidDate, map[string]string{"input": s})
}
