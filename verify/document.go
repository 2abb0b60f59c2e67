package verify

import (
	"fmt"
	"strings"
	"time"

	"github.com/digitorus/pdf"

	"github.com/digitorus/efirma-pdfsign/common"
)

// parseDocumentInfo parses document information from PDF Info dictionary.
func parseDocumentInfo(v pdf.Value, documentInfo *common.DocumentInfo) {
	for _, key := range v.Keys() {
		value := v.Key(key)
		if value.IsNull() {
			continue
		}
		valueStr := value.Text()

		switch key {
		case "Author":
			documentInfo.Author = valueStr
		case "Creator":
			documentInfo.Creator = valueStr
		case "Producer":
			documentInfo.Producer = valueStr
		case "Subject":
			documentInfo.Subject = valueStr
		case "Title":
			documentInfo.Title = valueStr
		case "Keywords":
			documentInfo.Keywords = parseKeywords(valueStr)
		// parse dates
		case "CreationDate", "ModDate":
			t, err := parseDate(valueStr)
			if err != nil {
				continue
			}
			if key == "CreationDate" {
				documentInfo.CreationDate = &t
			} else {
				documentInfo.ModDate = &t
			}
		}
	}
}

// pdfDateLayouts are tried in order after the apostrophes of the offset
// have been removed.
var pdfDateLayouts = []string{
	"20060102150405Z0700",
	"20060102150405Z07",
	"20060102150405",
	"200601021504",
	"2006010215",
	"20060102",
	"200601",
	"2006",
}

// parseDate parses PDF formatted dates.
func parseDate(v string) (time.Time, error) {
	// PDF Date Format
	// (D:YYYYMMDDHHmmSSOHH'mm')
	//
	// where
	//
	// YYYY is the year
	// MM is the month
	// DD is the day (01-31)
	// HH is the hour (00-23)
	// mm is the minute (00-59)
	// SS is the second (00-59)
	// O is the relationship of local time to Universal Time (UT), denoted by one of the characters +, -, or Z (see below)
	// HH followed by ' is the absolute value of the offset from UT in hours (00-23)
	// mm followed by ' is the absolute value of the offset from UT in minutes (00-59)
	//
	// Everything after the year is optional.
	s := strings.TrimPrefix(strings.TrimSpace(v), "D:")
	s = strings.TrimSuffix(s, "'")
	s = strings.Replace(s, "'", "", 1)

	for _, layout := range pdfDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized PDF date %q", v)
}

// parseKeywords parses keywords PDF metadata.
func parseKeywords(value string) []string {
	// keywords must be separated by commas or semicolons or could be just separated with spaces, after the semicolon could be a space
	// https://stackoverflow.com/questions/44608608/the-separator-between-keywords-in-pdf-meta-data
	separators := []string{", ", "; ", ",", ";", " "}
	for _, s := range separators {
		if strings.Contains(value, s) {
			return strings.Split(value, s)
		}
	}

	return []string{value}
}
