package types

import (
	"encoding/json"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

type Data map[string]any

func (d *Data) Get(key string) (any, bool) {
	if d == nil || *d == nil {
		return nil, false
	}
	v, exists := (*d)[key]
	return v, exists
}

func (d *Data) GetString(key string) (string, bool) {
	v, exists := d.Get(key)
	return cast.ToString(v), exists
}

// GetNonEmptyString returns the trimmed string value of key, reporting false
// when the key is missing or blank.
func (d *Data) GetNonEmptyString(key string) (string, bool) {
	s, exists := d.GetString(key)
	s = strings.TrimSpace(s)
	return s, exists && s != ""
}

func (d *Data) GetStringSlice(key string) ([]string, bool) {
	v, exists := d.Get(key)
	if !exists || v == nil {
		return nil, false
	}
	return cast.ToStringSlice(v), true
}

func (d *Data) GetInt(key string) (int, bool) {
	v, exists := d.Get(key)
	return cast.ToInt(v), exists
}

func (d *Data) GetStruct(key string, s any) error {
	v, exists := d.Get(key)
	if !exists {
		return errors.NotFoundf("key %s", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Annotatef(err, "marshal %s failed", key)
	}
	return errors.Trace(json.Unmarshal(b, s))
}

func (d *Data) Set(key string, value any) {
	if *d == nil {
		*d = Data{}
	}
	(*d)[key] = value
}
