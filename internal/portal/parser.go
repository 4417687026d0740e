package portal

import (
	"regexp"
	"strings"
)

// Labels the portal prints above each summary value on the result page.
const (
	labelRegisterNumber = "Numer księgi wieczystej"
	labelRegisterType   = "Typ księgi wieczystej"
	labelCourt          = "Oznaczenie wydziału prowadzącego księgę wieczystą"
	labelWrittenAt      = "Data zapisania księgi wieczystej"
	labelLocation       = "Położenie"
	labelOwner          = "Właściciel / użytkownik wieczysty / uprawniony"
)

// Sections are the book sections fetched individually from the result page.
var Sections = []string{"Dział I-O", "Dział I-Sp", "Dział II", "Dział III", "Dział IV"}

// Summary holds the fields extracted from the result page header.
type Summary struct {
	RegisterNumber string
	RegisterType   string
	Court          string
	WrittenAt      string
	Location       string
	Owner          string
}

// ParseSummary extracts the labelled summary fields from the rendered result
// page text. Each value sits on the line following its label; a missing
// label yields an empty field, not an error, because older books omit some
// of them.
func ParseSummary(text string) Summary {
	return Summary{
		RegisterNumber: valueAfterLabel(text, labelRegisterNumber),
		RegisterType:   valueAfterLabel(text, labelRegisterType),
		Court:          valueAfterLabel(text, labelCourt),
		WrittenAt:      valueAfterLabel(text, labelWrittenAt),
		Location:       valueAfterLabel(text, labelLocation),
		Owner:          valueAfterLabel(text, labelOwner),
	}
}

func valueAfterLabel(text, label string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(label) + `\s*\n([^\n]+)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// departmentCodePattern matches codes like "WA1M" at the start of a dropdown
// line ("WA1M - WARSZAWA"). RE2 has no lookarounds, so the trailing " - " is
// matched and discarded via the capture group.
var departmentCodePattern = regexp.MustCompile(`(?m)^([A-Z]{2}[0-9][A-Z]) - `)

// ParseDepartmentCodes extracts department codes from the dropdown text,
// deduplicated in first-seen order.
func ParseDepartmentCodes(text string) []string {
	matches := departmentCodePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		code := m[1]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
