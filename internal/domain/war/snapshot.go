package war

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// snapshotFields reads a current-war payload one field at a time, so each
// branch of the estimator only depends on the fields it uses. Absent or null
// fields read as zero values; fields of the wrong type return an error.
type snapshotFields struct {
	root map[string]any
}

// startTimeLayouts are tried in order; the game API uses the compact form
var startTimeLayouts = []string{
	time.RFC3339Nano,
	"20060102T150405.000Z",
	"20060102T150405Z",
	"2006-01-02T15:04:05.999999999",
}

func newSnapshotFields(raw any) (snapshotFields, error) {
	root, ok := raw.(map[string]any)
	if !ok {
		return snapshotFields{}, fmt.Errorf("snapshot is %T, not an object", raw)
	}
	return snapshotFields{root: root}, nil
}

func (s snapshotFields) periodType() (string, error) {
	return optionalString(s.root, "periodType")
}

// dayDecks returns the total decks used on each recorded day
func (s snapshotFields) dayDecks() ([]int, error) {
	days, err := optionalList(s.root, "days")
	if err != nil {
		return nil, err
	}
	decks := make([]int, 0, len(days))
	for i, day := range days {
		n, err := countField(day, "decksUsed")
		if err != nil {
			return nil, fmt.Errorf("days[%d]: %w", i, err)
		}
		decks = append(decks, n)
	}
	return decks, nil
}

// participantDecks returns each participant's cumulative decks used
func (s snapshotFields) participantDecks() ([]int, error) {
	clan, err := optionalObject(s.root, "clan")
	if err != nil {
		return nil, err
	}
	participants, err := optionalList(clan, "participants")
	if err != nil {
		return nil, fmt.Errorf("clan: %w", err)
	}
	decks := make([]int, 0, len(participants))
	for i, participant := range participants {
		n, err := countField(participant, "decksUsed")
		if err != nil {
			return nil, fmt.Errorf("clan.participants[%d]: %w", i, err)
		}
		decks = append(decks, n)
	}
	return decks, nil
}

// startTime returns nil for anything that is not a parseable timestamp string
func (s snapshotFields) startTime() *time.Time {
	return parseStartTime(s.root["startTime"])
}

func (s snapshotFields) dayIndex() (*int, error) {
	value, present := s.root["dayIndex"]
	if !present || value == nil {
		return nil, nil
	}
	index, err := toCount(value)
	if err != nil {
		return nil, fmt.Errorf("dayIndex: %w", err)
	}
	return &index, nil
}

func optionalString(obj map[string]any, key string) (string, error) {
	value, present := obj[key]
	if !present || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s is %T, not a string", key, value)
	}
	return s, nil
}

func optionalObject(obj map[string]any, key string) (map[string]any, error) {
	value, present := obj[key]
	if !present || value == nil {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not an object", key, value)
	}
	return m, nil
}

func optionalList(obj map[string]any, key string) ([]any, error) {
	value, present := obj[key]
	if !present || value == nil {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is %T, not a list", key, value)
	}
	return list, nil
}

// countField reads a non-negative counter from a list element; a missing counter is zero
func countField(element any, key string) (int, error) {
	obj, ok := element.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("element is %T, not an object", element)
	}
	value, present := obj[key]
	if !present || value == nil {
		return 0, nil
	}
	count, err := toCount(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return count, nil
}

// toCount coerces JSON numbers and numeric strings to a non-negative int
func toCount(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric string %q", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("value is %T, not a number", value)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("count %v out of range", f)
	}
	return int(f), nil
}

// parseStartTime returns nil for anything that is not a parseable timestamp string
func parseStartTime(value any) *time.Time {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
