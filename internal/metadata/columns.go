package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// referenceEpoch is the Core Data reference date. Timestamps in the metadata
// store count seconds from 2001-01-01T00:00:00Z, not from the Unix epoch.
var referenceEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Candidate column names per canonical field, in priority order. The Voice
// Memos schema has renamed columns across releases while keeping the same
// semantic fields, so each field is resolved against an ordered list instead
// of a fixed schema.
var (
	guidColumns     = []string{"ZUUID", "ZIDENTIFIER", "ZUNIQUEID"}
	primaryKeyCol   = "Z_PK"
	titleColumns    = []string{"ZTITLE", "ZNAME", "ZGENERICNAME", "ZCUSTOMLABEL"}
	dateColumns     = []string{"ZCREATIONDATE", "ZDATE", "ZRECORDEDDATE"}
	durationColumns = []string{"ZDURATION", "ZLENGTH"}
	trashColumns    = []string{"ZTRASHED", "ZDELETED", "ZEVICTIONDATE"}
	pathColumns     = []string{"ZPATH", "ZURL", "ZFILENAME"}
)

// knownTables are table names used by known application versions, tried in
// priority order before falling back to a column-heuristic scan
var knownTables = []string{"ZCLOUDRECORDING", "ZVOICE", "ZRECORDING"}

// rowMap is a single result row keyed by column name
type rowMap map[string]any

// pick returns the first present, non-null, non-empty value among the
// candidate columns
func (r rowMap) pick(candidates []string) (any, bool) {
	for _, name := range candidates {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}
		if s, isStr := asString(v); isStr && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// pickString resolves a candidate list to a string value
func (r rowMap) pickString(candidates []string) string {
	v, ok := r.pick(candidates)
	if !ok {
		return ""
	}
	s, _ := asString(v)
	return s
}

// pickFloat resolves a candidate list to a float value
func (r rowMap) pickFloat(candidates []string) (float64, bool) {
	v, ok := r.pick(candidates)
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// pickTime resolves a candidate list to a timestamp, interpreting the value
// as seconds from the reference epoch. Unparseable values yield a zero time,
// never an error.
func (r rowMap) pickTime(candidates []string) time.Time {
	f, ok := r.pickFloat(candidates)
	if !ok {
		return time.Time{}
	}
	return referenceEpoch.Add(time.Duration(f * float64(time.Second)))
}

// pickTruthy reports whether any candidate column holds a truthy value
func (r rowMap) pickTruthy(candidates []string) bool {
	for _, name := range candidates {
		if v, ok := r[name]; ok && truthy(v) {
			return true
		}
	}
	return false
}

// asString coerces a driver value to a string. The bool result is false only
// for values with no reasonable string form.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

// asFloat coerces a driver value to floating seconds
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// truthy implements the trash-flag interpretation: non-zero numbers are
// true, strings are true unless in {"", "0", "false", "no"}, and any other
// non-null value is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		return truthyString(t)
	case []byte:
		return truthyString(string(t))
	default:
		return true
	}
}

func truthyString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}
