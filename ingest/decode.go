// ABOUTME: Decodes weakly-typed status payloads into roster events using gjson.
// ABOUTME: Accepts event arrays, wrapped arrays, and objects keyed by agent id with several field spellings.
package ingest

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/2389-research/tusk/roster"
	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned when a status payload is not valid JSON.
var ErrInvalidPayload = errors.New("invalid status payload")

// containerKeys are the wrapper fields a source may nest events under.
var containerKeys = []string{"agents", "statuses", "agent_statuses", "events", "data", "items"}

// Field spellings seen across status sources, in lookup order.
var (
	idKeys        = []string{"id", "agent_id", "agentId"}
	typeKeys      = []string{"type", "agent_type", "agentType"}
	nameKeys      = []string{"name", "agent", "agent_name", "agentName", "display_name"}
	statusKeys    = []string{"status", "state"}
	messageKeys   = []string{"message", "msg", "detail", "status_message"}
	resultKeys    = []string{"result", "output"}
	progressKeys  = []string{"progress", "percent"}
	startedKeys   = []string{"started_at", "startedAt", "start_time"}
	endedKeys     = []string{"ended_at", "endedAt", "end_time", "completed_at"}
	timestampKeys = []string{"timestamp", "updated_at", "time"}
)

// Decode parses a status payload. Entries that are not objects (or, in keyed
// form, not objects or status strings) are skipped rather than failing the
// whole payload.
func Decode(data []byte) ([]roster.Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidPayload
	}
	return collect(gjson.ParseBytes(data)), nil
}

func collect(root gjson.Result) []roster.Event {
	switch {
	case root.IsArray():
		return fromArray(root)
	case root.IsObject():
		for _, k := range containerKeys {
			v := root.Get(k)
			switch {
			case v.IsArray():
				return fromArray(v)
			case v.IsObject():
				return fromKeyed(v)
			}
		}
		if first(root, statusKeys).Exists() {
			return []roster.Event{eventFrom(root, "")}
		}
		return fromKeyed(root)
	default:
		return nil
	}
}

func fromArray(arr gjson.Result) []roster.Event {
	var out []roster.Event
	arr.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, eventFrom(v, ""))
		}
		return true
	})
	return out
}

// fromKeyed handles {"cleaner": {...}, "sql": "done"} style payloads.
func fromKeyed(obj gjson.Result) []roster.Event {
	var out []roster.Event
	obj.ForEach(func(k, v gjson.Result) bool {
		switch {
		case v.IsObject():
			out = append(out, eventFrom(v, k.String()))
		case v.Type == gjson.String:
			out = append(out, roster.Event{ID: k.String(), Status: v.String()})
		}
		return true
	})
	return out
}

// eventFrom builds an event from one object. key is the enclosing map key in
// keyed payloads; it fills ID when the object carries none, else Name.
func eventFrom(v gjson.Result, key string) roster.Event {
	evt := roster.Event{
		ID:        str(first(v, idKeys)),
		Type:      str(first(v, typeKeys)),
		Name:      str(first(v, nameKeys)),
		Status:    str(first(v, statusKeys)),
		Message:   str(first(v, messageKeys)),
		Progress:  number(first(v, progressKeys)),
		StartedAt: timestamp(first(v, startedKeys)),
		EndedAt:   timestamp(first(v, endedKeys)),
		Timestamp: timestamp(first(v, timestampKeys)),
	}
	if r := first(v, resultKeys); r.Exists() && r.Type != gjson.Null {
		evt.Result = json.RawMessage(r.Raw)
	}
	if key != "" {
		switch {
		case evt.ID == "":
			evt.ID = key
		case evt.Name == "":
			evt.Name = key
		}
	}
	return evt
}

// first returns the first present field among keys.
func first(v gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if r := v.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// str renders scalar values as strings and ignores objects, arrays and null.
func str(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	case gjson.True, gjson.False:
		return r.Raw
	default:
		return ""
	}
}

// number reads a numeric or numeric-string field.
func number(r gjson.Result) *float64 {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(r.Str), "%"), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// timestamp reads RFC3339-ish strings or unix seconds/milliseconds.
func timestamp(r gjson.Result) time.Time {
	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(f)
		}
	case gjson.Number:
		return unixTime(r.Num)
	}
	return time.Time{}
}

// unixTime treats values above 1e12 as milliseconds.
func unixTime(f float64) time.Time {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
