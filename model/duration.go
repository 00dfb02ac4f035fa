package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Seconds is a whole-second duration. Older sidecars and playlist indexes
// carry fractional values straight from the extractor ("duration": 213.5);
// those decode truncated. Encoding always writes an integer.
type Seconds int

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if len(data) > 1 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		data = []byte(str)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid duration %s: %w", data, err)
	}
	*s = Seconds(int(f))
	return nil
}
