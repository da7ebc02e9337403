package orderscraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// SyntheticColumnName names a column without a usable header. position is 1-based.
func SyntheticColumnName(position int) string {
	return fmt.Sprintf("column_%d", position)
}

// NormalizeHeaders trims header texts, names empty ones by position and suffixes
// repeated names with their occurrence count ("Date", "Date_2", "Date_3").
// The result never contains the same name twice.
func NormalizeHeaders(headers []string) []string {
	counts := make(map[string]int, len(headers))
	used := make(map[string]bool, len(headers))
	result := make([]string, 0, len(headers))
	for i, header := range headers {
		base := strings.TrimSpace(header)
		if base == "" {
			base = SyntheticColumnName(i + 1)
		}
		counts[base]++
		name := base
		if counts[base] > 1 {
			name = fmt.Sprintf("%v_%d", base, counts[base])
		}
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%v_%d", base, counts[base])
		}
		used[name] = true
		result = append(result, name)
	}
	return result
}

// RowRecord builds the record of one body row. Cells past the end of headers get
// SyntheticColumnName(position); when such a name is already a key the later cell wins.
func RowRecord(headers []string, values []string) Record {
	var record Record
	for j, value := range values {
		key := SyntheticColumnName(j + 1)
		if j < len(headers) {
			key = headers[j]
		}
		record.Set(key, value)
	}
	return record
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

// TableHeaders returns the normalized header of table: the th cells of its thead,
// or the cells of its first row when there are none.
func TableHeaders(table *goquery.Selection) []string {
	headers := cellTexts(table.ChildrenFiltered("thead").ChildrenFiltered("tr").ChildrenFiltered("th"))
	if len(headers) == 0 {
		headers = cellTexts(table.Find("tr").First().ChildrenFiltered("th, td"))
	}
	return NormalizeHeaders(headers)
}

// ParseTable converts the rows of the table's tbody into records in document order.
// Rows without cells or with only empty cells are skipped.
func ParseTable(table *goquery.Selection) ([]Record, []string) {
	headers := TableHeaders(table)
	records := []Record{}
	table.ChildrenFiltered("tbody").ChildrenFiltered("tr").Each(func(_ int, row *goquery.Selection) {
		values := cellTexts(row.ChildrenFiltered("td"))
		if allEmpty(values) {
			return
		}
		records = append(records, RowRecord(headers, values))
	})
	return records, headers
}

func cellTexts(cells *goquery.Selection) []string {
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, CellText(cell))
	})
	return texts
}

// blockBreak marks the edge of a block element while rendering; the HTML parser never leaves NUL in text.
const blockBreak = "\x00"

var (
	reSpaces      = regexp.MustCompile(`[ \t\r\n\f\v\x{00a0}]+`)
	reMultiSpace  = regexp.MustCompile(` {2,}`)
	reBlockBreaks = regexp.MustCompile(`[ \n]*\x00[ \n\x00]*`)
	reLineSpacing = regexp.MustCompile(` *\n *`)
)

// blockElements start and end a line of rendered text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "dd": true, "div": true,
	"dl": true, "dt": true, "fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

// CellText approximates the rendered text of a cell: whitespace runs collapse to one
// space, <br> and block elements become line breaks, script and style contents are dropped,
// and the result is trimmed.
func CellText(cell *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range cell.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderText(child, &sb)
		}
	}
	text := reMultiSpace.ReplaceAllString(sb.String(), " ")
	text = reBlockBreaks.ReplaceAllString(text, "\n")
	text = reLineSpacing.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

func renderText(node *html.Node, sb *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		sb.WriteString(reSpaces.ReplaceAllString(node.Data, " "))
		return
	case html.ElementNode:
		switch node.Data {
		case "script", "style", "template":
			return
		case "br":
			sb.WriteString("\n")
			return
		}
	}
	block := node.Type == html.ElementNode && blockElements[node.Data]
	if block {
		sb.WriteString(blockBreak)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderText(child, sb)
	}
	if block {
		sb.WriteString(blockBreak)
	}
}
