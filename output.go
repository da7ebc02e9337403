package orderscraper

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dimchansky/utfbom"
)

// EmptyColumn is the placeholder column of a CSV file written without records.
const EmptyColumn = "empty"

func isJSONPath(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".json"
}

// SortedKeys returns the sorted union of the keys of all records.
func SortedKeys(records []Record) []string {
	seen := map[string]bool{}
	var keys []string
	for _, record := range records {
		for _, key := range record.keys {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// WriteRecords saves records to path, as JSON when the extension is .json and as CSV otherwise.
// charset applies to CSV only; JSON is always UTF-8.
func WriteRecords(path string, records []Record, charset string) error {
	encode, err := outputEncoding(charset)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("couldn't create directory: %v: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if isJSONPath(path) {
		err = EncodeJSON(w, records)
	} else {
		ew := encodingWriter(w, encode)
		err = EncodeCSV(ew, records)
		if closeErr := ew.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return fmt.Errorf("%v: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// EncodeJSON writes a pretty printed array of objects in record key order.
func EncodeJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// EncodeCSV writes a header of SortedKeys and one row per record; missing keys are empty cells.
func EncodeCSV(w io.Writer, records []Record) error {
	keys := SortedKeys(records)
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if len(keys) == 0 {
		if err := cw.Write([]string{EmptyColumn}); err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		// a lone empty field would otherwise be written as a blank line
		_, err := io.WriteString(w, "\"\"\r\n")
		return err
	}
	if err := cw.Write(keys); err != nil {
		return err
	}
	row := make([]string, len(keys))
	for _, record := range records {
		for i, key := range keys {
			row[i] = record.values[key]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecords loads a file written by WriteRecords.
func ReadRecords(path string, charset string) ([]Record, error) {
	encode, err := outputEncoding(charset)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if isJSONPath(path) {
		return DecodeJSON(f)
	}
	return DecodeCSV(encodingReader(f, encode))
}

func DecodeJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(utfbom.SkipOnly(r)).Decode(&records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// DecodeCSV reads a header line followed by rows. The placeholder file of an empty result yields no records.
func DecodeCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	placeholder := len(header) == 1 && header[0] == EmptyColumn

	records := []Record{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if placeholder && allEmpty(row) {
			continue
		}
		var record Record
		for i, key := range header {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			record.Set(key, value)
		}
		records = append(records, record)
	}
	return records, nil
}
