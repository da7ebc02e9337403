package orderscraper

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record maps column names to cell texts and remembers the order keys were first set in.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from alternating keys and values.
func NewRecord(pairs ...string) Record {
	var record Record
	for i := 0; i+1 < len(pairs); i += 2 {
		record.Set(pairs[i], pairs[i+1])
	}
	return record
}

// Set stores value under key. Overwriting keeps the key at its original position.
func (record *Record) Set(key, value string) {
	if record.values == nil {
		record.values = map[string]string{}
	}
	if _, ok := record.values[key]; !ok {
		record.keys = append(record.keys, key)
	}
	record.values[key] = value
}

func (record Record) Get(key string) (string, bool) {
	value, ok := record.values[key]
	return value, ok
}

func (record Record) Keys() []string {
	return append([]string(nil), record.keys...)
}

func (record Record) Len() int {
	return len(record.keys)
}

// Map returns a copy of the contents without ordering.
func (record Record) Map() map[string]string {
	m := make(map[string]string, len(record.values))
	for k, v := range record.values {
		m[k] = v
	}
	return m
}

func (record Record) GoString() string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "Record{")
	for i, key := range record.keys {
		if i > 0 {
			fmt.Fprintf(buf, ", ")
		}
		fmt.Fprintf(buf, "%#v: %#v", key, record.values[key])
	}
	fmt.Fprintf(buf, "}")
	return buf.String()
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// MarshalJSON writes an object whose members follow the record's key order.
func (record Record) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, key := range record.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(buf, record.values[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object keeping member order. Non-string values are kept as their JSON text.
func (record *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", token)
	}
	*record = Record{}
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", token)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			value = string(raw)
		}
		record.Set(key, value)
	}
	_, err = dec.Token()
	return err
}
