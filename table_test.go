package orderscraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createHtmlPage(t *testing.T, html string) *Page {
	t.Helper()
	page, err := NewPage(html, "http://localhost/orders/table", &DummyLogger{})
	if err != nil {
		t.Fatal("NewPage", err)
	}
	return page
}

type DummyLogger struct{}

func (logger DummyLogger) Printf(format string, a ...interface{}) {}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		shouldBe []string
	}{
		{"empty", []string{}, []string{}},
		{"trimmed", []string{" Name ", "\tDate\n"}, []string{"Name", "Date"}},
		{"blank gets position", []string{"Name", "", "  "}, []string{"Name", "column_2", "column_3"}},
		{"duplicates get occurrence count", []string{"Date", "Client", "Date", "Date"}, []string{"Date", "Client", "Date_2", "Date_3"}},
		{"generated name already taken", []string{"Date", "Date_2", "Date"}, []string{"Date", "Date_2", "Date_3"}},
		{"original collides with generated", []string{"Date", "Date", "Date_2"}, []string{"Date", "Date_2", "Date_2_2"}},
		{"real header named like a position", []string{"column_2", ""}, []string{"column_2", "column_2_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeaders(tt.headers)
			if diff := cmp.Diff(tt.shouldBe, got); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestNormalizeHeaders_UniqueAndDeterministic(t *testing.T) {
	alphabet := []string{"A", "A_2", "", "column_1", "B"}
	// every sequence of length 4 over the alphabet
	var generate func(prefix []string)
	generate = func(prefix []string) {
		if len(prefix) == 4 {
			first := NormalizeHeaders(prefix)
			second := NormalizeHeaders(append([]string(nil), prefix...))
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("%q not deterministic: %v", prefix, diff)
			}
			seen := map[string]bool{}
			for _, name := range first {
				if seen[name] {
					t.Errorf("%q -> %q contains %q twice", prefix, first, name)
				}
				seen[name] = true
			}
			if len(first) != len(prefix) {
				t.Errorf("%q -> %q changed length", prefix, first)
			}
			return
		}
		for _, h := range alphabet {
			generate(append(append([]string(nil), prefix...), h))
		}
	}
	generate(nil)
}

func TestRowRecord(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		values   []string
		shouldBe Record
	}{
		{
			"one value per header",
			[]string{"Name", "Age"},
			[]string{"Alice", "30"},
			NewRecord("Name", "Alice", "Age", "30"),
		},
		{
			"overflow cell gets a position name",
			[]string{"Name"},
			[]string{"Alice", "30"},
			NewRecord("Name", "Alice", "column_2", "30"),
		},
		{
			"short row",
			[]string{"Name", "Age", "City"},
			[]string{"Alice"},
			NewRecord("Name", "Alice"),
		},
		{
			"overflow collides with a header, later cell wins",
			[]string{"column_2"},
			[]string{"first", "second"},
			NewRecord("column_2", "second"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RowRecord(tt.headers, tt.values)
			if diff := cmp.Diff(tt.shouldBe, got, cmp.AllowUnexported(Record{})); diff != "" {
				t.Errorf("(-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	tests := []struct {
		name            string
		html            string
		shouldBeHeaders []string
		shouldBe        []Record
	}{
		{
			name: "empty rows are skipped",
			html: `<table>
				<thead><tr><th>Name</th><th>Age</th></tr></thead>
				<tbody>
					<tr><td>Alice</td><td>30</td></tr>
					<tr><td></td><td></td></tr>
					<tr></tr>
					<tr><td>Bob</td><td>25</td></tr>
				</tbody></table>`,
			shouldBeHeaders: []string{"Name", "Age"},
			shouldBe: []Record{
				NewRecord("Name", "Alice", "Age", "30"),
				NewRecord("Name", "Bob", "Age", "25"),
			},
		},
		{
			name: "ragged rows",
			html: `<table>
				<thead><tr><th>Name</th></tr></thead>
				<tbody>
					<tr><td>Alice</td><td>30</td></tr>
					<tr><td>Bob</td></tr>
				</tbody></table>`,
			shouldBeHeaders: []string{"Name"},
			shouldBe: []Record{
				NewRecord("Name", "Alice", "column_2", "30"),
				NewRecord("Name", "Bob"),
			},
		},
		{
			name: "no thead uses the first row as header",
			html: `<table>
				<tr><th>No</th><th>Date</th><th>Date</th></tr>
				<tr><td>1</td><td>01.02</td><td>03.04</td></tr>
			</table>`,
			shouldBeHeaders: []string{"No", "Date", "Date_2"},
			shouldBe: []Record{
				NewRecord("No", "1", "Date", "01.02", "Date_2", "03.04"),
			},
		},
		{
			name: "header row of td cells is also a record",
			html: `<table><tbody>
				<tr><td>Name</td><td>Age</td></tr>
				<tr><td>Alice</td><td>30</td></tr>
			</tbody></table>`,
			shouldBeHeaders: []string{"Name", "Age"},
			shouldBe: []Record{
				NewRecord("Name", "Name", "Age", "Age"),
				NewRecord("Name", "Alice", "Age", "30"),
			},
		},
		{
			name: "thead without th falls back to its row",
			html: `<table>
				<thead><tr><td>Name</td><td></td></tr></thead>
				<tbody><tr><td>Alice</td><td>x</td></tr></tbody>
			</table>`,
			shouldBeHeaders: []string{"Name", "column_2"},
			shouldBe: []Record{
				NewRecord("Name", "Alice", "column_2", "x"),
			},
		},
		{
			name: "block elements in cells keep their lines apart",
			html: `<table>
				<thead><tr><th><div>Created</div><div>at</div></th><th>Client</th></tr></thead>
				<tbody><tr><td><div>12.03.2024</div><div>14:35</div></td><td>Alice</td></tr></tbody>
			</table>`,
			shouldBeHeaders: []string{"Created\nat", "Client"},
			shouldBe: []Record{
				NewRecord("Created\nat", "12.03.2024\n14:35", "Client", "Alice"),
			},
		},
		{
			name:            "no rows",
			html:            `<table><thead><tr><th>Name</th></tr></thead><tbody></tbody></table>`,
			shouldBeHeaders: []string{"Name"},
			shouldBe:        []Record{},
		},
		{
			name: "cell text is trimmed and nested tables stay out",
			html: `<table>
				<thead><tr><th> Client </th><th>Items</th></tr></thead>
				<tbody>
					<tr><td>
						Alice
						<b>Smith</b>
					</td><td><table><tbody><tr><td>nested</td></tr></tbody></table></td></tr>
				</tbody></table>`,
			shouldBeHeaders: []string{"Client", "Items"},
			shouldBe: []Record{
				NewRecord("Client", "Alice Smith", "Items", "nested"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := createHtmlPage(t, tt.html)
			table, err := page.FirstTable("table")
			if err != nil {
				t.Fatal(err)
			}
			got, headers := ParseTable(table)
			if diff := cmp.Diff(tt.shouldBeHeaders, headers); diff != "" {
				t.Errorf("headers (-shouldBe +got)\n%v", diff)
			}
			if diff := cmp.Diff(tt.shouldBe, got, cmp.AllowUnexported(Record{})); diff != "" {
				t.Errorf("records (-shouldBe +got)\n%v", diff)
			}
		})
	}
}

func TestParseTable_RecordCountMatchesNonEmptyRows(t *testing.T) {
	rows := [][]string{
		{"a", "b"}, {"", ""}, {}, {"", "c"}, {" ", "\n"}, {"d"}, {"", "", "e"},
	}
	var sb strings.Builder
	sb.WriteString("<table><thead><tr><th>X</th><th>Y</th></tr></thead><tbody>")
	nonEmpty := 0
	for _, row := range rows {
		sb.WriteString("<tr>")
		empty := true
		for _, cell := range row {
			fmt.Fprintf(&sb, "<td>%s</td>", cell)
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if !empty {
			nonEmpty++
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</tbody></table>")

	table, err := createHtmlPage(t, sb.String()).FirstTable("table")
	if err != nil {
		t.Fatal(err)
	}
	records, _ := ParseTable(table)
	if len(records) != nonEmpty {
		t.Errorf("got %d records, want %d", len(records), nonEmpty)
	}
	for i, record := range records {
		if record.Len() == 0 {
			t.Errorf("record #%d has no keys", i)
		}
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		html     string
		shouldBe string
	}{
		{`<td>  plain  </td>`, "plain"},
		{`<td>two&nbsp;&nbsp;words</td>`, "two words"},
		{`<td>line<br>break</td>`, "line\nbreak"},
		{`<td>a <span> b </span> c</td>`, "a b c"},
		{`<td>visible<script>var x = 1;</script><style>td{}</style></td>`, "visible"},
		{`<td><div>12.03.2024</div><div>14:35</div></td>`, "12.03.2024\n14:35"},
		{`<td><p>one</p> <p> two </p></td>`, "one\ntwo"},
		{`<td>before<div>inside</div>after</td>`, "before\ninside\nafter"},
		{`<td><ul><li>a</li><li>b</li></ul></td>`, "a\nb"},
		{`<td>a<br><div>b</div></td>`, "a\nb"},
		{`<td><div><span>Ivan</span> <span>Petrov</span></div></td>`, "Ivan Petrov"},
	}
	for _, tt := range tests {
		t.Run(tt.html, func(t *testing.T) {
			page := createHtmlPage(t, "<table><tr>"+tt.html+"</tr></table>")
			got := CellText(page.Find("td").First())
			if got != tt.shouldBe {
				t.Errorf("CellText() = %#v, want %#v", got, tt.shouldBe)
			}
		})
	}
}

func TestPage_FirstTable(t *testing.T) {
	page := createHtmlPage(t, `<div>no table here</div>`)
	if _, err := page.FirstTable("table"); err == nil {
		t.Error("FirstTable() should fail without a table")
	}
}
