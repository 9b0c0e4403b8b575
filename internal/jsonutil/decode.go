// Package jsonutil provides first-error-wins accessors over a
// JSON-decoded map[string]any, used by the header package to pull
// typed values out of a parsed JOSE header while preserving unknown
// fields verbatim.
package jsonutil

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"

	"encoding/json"
)

var b64 = base64.RawURLEncoding

// Decoder reads typed fields out of a map produced by a
// json.Decoder configured with UseNumber. It records only the first
// error encountered; a bad field does not stop the caller from
// reading the remaining fields, and Err reports that first error once
// at the end.
type Decoder struct {
	pkg string
	raw map[string]any
	err error
}

// NewDecoder returns a Decoder over raw. pkg is used only to prefix
// error messages (e.g. "jwe").
func NewDecoder(pkg string, raw map[string]any) *Decoder {
	return &Decoder{pkg: pkg, raw: raw}
}

// Has reports whether name is present in the underlying map.
func (d *Decoder) Has(name string) bool {
	_, ok := d.raw[name]
	return ok
}

// GetString returns the string field name, or ("", false) if absent.
func (d *Decoder) GetString(name string) (string, bool) {
	v, ok := d.raw[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		d.typeErr(name, "string", v)
		return "", false
	}
	return s, true
}

// GetBytes decodes the base64url-encoded string field name.
func (d *Decoder) GetBytes(name string) ([]byte, bool) {
	s, ok := d.GetString(name)
	if !ok {
		return nil, false
	}
	dst := make([]byte, b64.DecodedLen(len(s)))
	n, err := b64.Decode(dst, []byte(s))
	if err != nil {
		d.SaveError(fmt.Errorf("%s: failed to decode parameter %q as base64url: %w", d.pkg, name, err))
		return nil, false
	}
	return dst[:n], true
}

// GetInt64 returns the integer field name.
func (d *Decoder) GetInt64(name string) (int64, bool) {
	v, ok := d.raw[name]
	if !ok {
		return 0, false
	}
	switch v := v.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			d.SaveError(fmt.Errorf("%s: failed to parse integer parameter %q: %w", d.pkg, name, err))
			return 0, false
		}
		return i, true
	case float64:
		i, f := math.Modf(v)
		if f != 0 {
			d.SaveError(fmt.Errorf("%s: parameter %q is not an integer", d.pkg, name))
			return 0, false
		}
		return int64(i), true
	}
	d.typeErr(name, "number", v)
	return 0, false
}

// GetObject returns the object field name.
func (d *Decoder) GetObject(name string) (map[string]any, bool) {
	v, ok := d.raw[name]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		d.typeErr(name, "object", v)
		return nil, false
	}
	return m, true
}

// GetStringArray returns the array-of-strings field name.
func (d *Decoder) GetStringArray(name string) ([]string, bool) {
	v, ok := d.raw[name]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		d.typeErr(name, "array", v)
		return nil, false
	}
	ret := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			d.typeErr(name+"["+strconv.Itoa(i)+"]", "string", item)
			return nil, false
		}
		ret = append(ret, s)
	}
	return ret, true
}

// GetURL parses the string field name as a URL.
func (d *Decoder) GetURL(name string) (*url.URL, bool) {
	s, ok := d.GetString(name)
	if !ok {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		d.SaveError(fmt.Errorf("%s: failed to parse parameter %q as a URL: %w", d.pkg, name, err))
		return nil, false
	}
	return u, true
}

// SaveError records err as the first error seen, if none is recorded
// yet. A nil err is a no-op.
func (d *Decoder) SaveError(err error) {
	if err != nil && d.err == nil {
		d.err = err
	}
}

// Err returns the first error recorded during decoding, or nil.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) typeErr(name, want string, got any) {
	d.SaveError(fmt.Errorf("%s: want %s for parameter %q but got %s", d.pkg, want, name, reflect.TypeOf(got)))
}
