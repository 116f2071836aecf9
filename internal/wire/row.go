package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrBadShape = errors.New("wire: unsupported row shape")

func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // ids and timestamps must survive uint64 range
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// unwrapOption decodes the 2-element option encoding: [0, v] is
// present, [1, _] is absent. Anything else passes through as present.
func unwrapOption(v any) (any, bool) {
	seq, ok := v.([]any)
	if !ok || len(seq) != 2 {
		return v, v != nil
	}
	tag, ok := seq[0].(json.Number)
	if !ok {
		return v, true
	}
	switch tag.String() {
	case "0":
		return seq[1], true
	case "1":
		return nil, false
	}
	return v, true
}

// unwrapSingleton decodes the 1-element scalar wrapper used for
// identity and timestamp fields.
func unwrapSingleton(v any) any {
	if seq, ok := v.([]any); ok && len(seq) == 1 {
		return seq[0]
	}
	return v
}

// decodeVariant resolves a sum-typed field to a variant name: ordinal
// lookup first, then single-object-key, then the value itself, then
// the per-field default.
func decodeVariant(v any, names []string, def string) string {
	switch t := v.(type) {
	case []any:
		if len(t) >= 1 {
			if ord, ok := t[0].(json.Number); ok {
				if i, err := strconv.Atoi(ord.String()); err == nil && i >= 0 && i < len(names) {
					return names[i]
				}
			}
		}
	case json.Number:
		if i, err := strconv.Atoi(t.String()); err == nil && i >= 0 && i < len(names) {
			return names[i]
		}
	case map[string]any:
		if len(t) == 1 {
			for k := range t {
				for _, n := range names {
					if n == k {
						return k
					}
				}
			}
		}
	case string:
		for _, n := range names {
			if n == t {
				return t
			}
		}
	}
	return def
}

// Row is one wire row normalized to positional form. Accessors record
// the first failure; callers check Err once after reading every field,
// so a single bad field poisons the row rather than panicking.
type Row struct {
	table  string
	fields []any
	err    error
}

// newRow normalizes either wire shape onto the canonical field order
// given by keys. Keyed rows may omit trailing optional fields; missing
// entries surface as nil and fail in the typed accessors if required.
func newRow(table string, raw json.RawMessage, keys []string) (*Row, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return nil, fmt.Errorf("wire: %s row: %w", table, err)
	}
	fields := make([]any, len(keys))
	switch t := v.(type) {
	case []any:
		if len(t) < len(keys) {
			return nil, fmt.Errorf("wire: %s row: %d fields, want %d: %w", table, len(t), len(keys), ErrBadShape)
		}
		copy(fields, t)
	case map[string]any:
		for i, k := range keys {
			fields[i] = t[k]
		}
	default:
		return nil, fmt.Errorf("wire: %s row: %T: %w", table, v, ErrBadShape)
	}
	return &Row{table: table, fields: fields}, nil
}

func (r *Row) Err() error { return r.err }

func (r *Row) fail(i int, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("wire: %s.%d: %s", r.table, i, fmt.Sprintf(format, args...))
	}
}

func (r *Row) number(i int) (json.Number, bool) {
	v := unwrapSingleton(r.fields[i])
	n, ok := v.(json.Number)
	if !ok {
		r.fail(i, "want number, got %T", v)
	}
	return n, ok
}

func (r *Row) Uint(i int) uint64 {
	n, ok := r.number(i)
	if !ok {
		return 0
	}
	u, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		r.fail(i, "bad uint %q", n.String())
		return 0
	}
	return u
}

func (r *Row) Int(i int) int64 {
	n, ok := r.number(i)
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		r.fail(i, "bad int %q", n.String())
		return 0
	}
	return v
}

// Timestamp reads a microsecond timestamp, singleton-wrapped or plain.
func (r *Row) Timestamp(i int) int64 { return r.Int(i) }

func (r *Row) Str(i int) string {
	v := unwrapSingleton(r.fields[i])
	s, ok := v.(string)
	if !ok {
		r.fail(i, "want string, got %T", v)
		return ""
	}
	return s
}

func (r *Row) Bool(i int) bool {
	v := unwrapSingleton(r.fields[i])
	b, ok := v.(bool)
	if !ok {
		r.fail(i, "want bool, got %T", v)
		return false
	}
	return b
}

func (r *Row) OptStr(i int) *string {
	v, present := unwrapOption(r.fields[i])
	if !present {
		return nil
	}
	s, ok := unwrapSingleton(v).(string)
	if !ok {
		r.fail(i, "want optional string, got %T", v)
		return nil
	}
	return &s
}

func (r *Row) OptUint(i int) *uint64 {
	v, present := unwrapOption(r.fields[i])
	if !present {
		return nil
	}
	n, ok := unwrapSingleton(v).(json.Number)
	if !ok {
		r.fail(i, "want optional uint, got %T", v)
		return nil
	}
	u, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		r.fail(i, "bad uint %q", n.String())
		return nil
	}
	return &u
}

func (r *Row) OptInt(i int) *int64 {
	v, present := unwrapOption(r.fields[i])
	if !present {
		return nil
	}
	n, ok := unwrapSingleton(v).(json.Number)
	if !ok {
		r.fail(i, "want optional int, got %T", v)
		return nil
	}
	x, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		r.fail(i, "bad int %q", n.String())
		return nil
	}
	return &x
}

func (r *Row) Identity(i int) string {
	raw, err := json.Marshal(r.fields[i])
	if err != nil {
		r.fail(i, "identity: %v", err)
		return ""
	}
	id, err := NormalizeIdentity(raw)
	if err != nil {
		r.fail(i, "%v", err)
		return ""
	}
	return id
}

func (r *Row) Variant(i int, names []string, def string) string {
	return decodeVariant(r.fields[i], names, def)
}
