package models

import (
	"encoding/json"
	"fmt"
	"time"
)

var errInvalidDuration = fmt.Errorf("invalid duration")

// Duration is a time.Duration with the registry's JSON convention: bare
// numbers are whole seconds, strings go through time.ParseDuration
// ("90s", "2m").
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value) * time.Second)
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// MarshalJSON writes whole seconds, the same shape UnmarshalJSON accepts
// as a bare number.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(time.Duration(d) / time.Second))
}

// Seconds returns the duration as whole seconds, the unit the metrics
// counters accumulate in.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
