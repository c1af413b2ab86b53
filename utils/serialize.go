package utils

import "encoding/json"

func Unserialize(b []byte, o any) error {
	return json.Unmarshal(b, o)
}

// SerializePretty renders o as indented JSON, strings are returned verbatim.
func SerializePretty(o any) ([]byte, error) {
	if s, ok := o.(string); ok {
		return []byte(s), nil
	}
	return json.MarshalIndent(o, "", "  ")
}
