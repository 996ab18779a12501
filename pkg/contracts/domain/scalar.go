package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Scalar is a text field the backend may send as a JSON string, number or
// boolean. Numbers keep their literal text; null decodes to "".
type Scalar string

// UnmarshalJSON implements json.Unmarshaler
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty scalar")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid scalar %s", data)
		}
		return nil
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*s = Scalar(data)
	case '{', '[':
		return fmt.Errorf("expected a string or number, got %s", data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*s = Scalar(n.String())
	}
	return nil
}

// String returns the text form
func (s Scalar) String() string {
	return string(s)
}
