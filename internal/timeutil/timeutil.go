// Package timeutil normalizes the timestamp shapes found in stored entities
// (ISO strings, epoch millis, store timestamp objects) into epoch milliseconds.
package timeutil

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Millis is a point in time in Unix epoch milliseconds. Zero means unset.
type Millis int64

const (
	Second Millis = 1000
	Minute        = 60 * Second
	Hour          = 60 * Minute
	Day           = 24 * Hour
)

// StoreTimestamp is implemented by timestamp values handed back by a document
// store that expose their own millisecond accessor.
type StoreTimestamp interface {
	ToMillis() int64
}

// Now returns the current wall-clock time.
func Now() Millis {
	return FromTime(time.Now())
}

// FromTime converts t, mapping the zero time to 0.
func FromTime(t time.Time) Millis {
	if t.IsZero() {
		return 0
	}
	return Millis(t.UnixMilli())
}

// Time returns m as a time.Time in the local zone, or the zero time when unset.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// IsZero reports whether m is unset.
func (m Millis) IsZero() bool { return m == 0 }

// Days returns the duration m expressed in fractional days.
func (m Millis) Days() float64 { return float64(m) / float64(Day) }

// ToMillis resolves v to epoch milliseconds. Missing or unparseable input
// yields 0; it never panics.
func ToMillis(v any) (m Millis) {
	defer func() {
		if recover() != nil {
			m = 0
		}
	}()

	switch x := v.(type) {
	case nil:
		return 0
	case StoreTimestamp:
		return Millis(x.ToMillis())
	case time.Time:
		return FromTime(x)
	case *time.Time:
		if x == nil {
			return 0
		}
		return FromTime(*x)
	case string:
		return parseString(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Millis(i)
		}
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return fromFloat(f)
	case map[string]any:
		return fromSecondsMap(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Millis(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Millis(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	}
	return 0
}

func parseString(s string) Millis {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return 0
	}
	return FromTime(t)
}

func fromFloat(f float64) Millis {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Millis(math.Trunc(f))
}

// fromSecondsMap handles serialized store timestamps such as
// {"seconds": 1700000000, "nanoseconds": 0} (with or without a leading underscore).
func fromSecondsMap(raw map[string]any) Millis {
	secs, ok := lookupNumber(raw, "seconds", "_seconds")
	if !ok {
		return 0
	}
	nanos, _ := lookupNumber(raw, "nanoseconds", "_nanoseconds")
	return fromFloat(secs*1000 + nanos/1e6)
}

func lookupNumber(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		if n, ok := v.(json.Number); ok {
			f, err := n.Float64()
			return f, err == nil
		}
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}

// UnmarshalJSON accepts a string, a number, a seconds/nanoseconds object or null.
func (m *Millis) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = ToMillis(raw)
	return nil
}

// MarshalJSON encodes m as an integer, or null when unset.
func (m Millis) MarshalJSON() ([]byte, error) {
	if m == 0 {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, int64(m), 10), nil
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (m *Millis) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			*m = 0
		case "!!int":
			var i int64
			if err := node.Decode(&i); err != nil {
				return err
			}
			*m = Millis(i)
		case "!!float":
			var f float64
			if err := node.Decode(&f); err != nil {
				return err
			}
			*m = fromFloat(f)
		default:
			*m = parseString(node.Value)
		}
	case yaml.MappingNode:
		var raw map[string]any
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*m = ToMillis(raw)
	default:
		*m = 0
	}
	return nil
}

// StartOfDay returns local midnight of the day containing m.
func StartOfDay(m Millis, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(int64(m)).In(loc)
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc)
}

// DayDiff returns the number of calendar days from now's date to due's date.
// Negative values mean due lies on an earlier day.
func DayDiff(due, now Millis, loc *time.Location) int {
	d := StartOfDay(due, loc).Sub(StartOfDay(now, loc))
	return int(math.Round(d.Hours() / 24))
}
