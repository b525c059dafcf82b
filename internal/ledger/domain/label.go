package domain

import (
	"regexp"
	"strings"
)

const labelRawTextLimit = 200

var (
	// "05/03/25 (MFG) 04/03/26 (EXP) 25-8902-0014" style print line
	labelStructured = regexp.MustCompile(`(\d{2}/\d{2}/\d{2,4})\s*\([^)]+\)\s*(\d{2}/\d{2}/\d{2,4})\s*\([^)]+\)\s*(\d{2}-\d{4}-\d{4})`)
	labelBatch      = []*regexp.Regexp{
		regexp.MustCompile(`(\d{2}-\d{4}-\d{4})`),
		regexp.MustCompile(`BATCH\s*NO\.?\s*[:\-]?\s*([A-Z0-9\-]+)`),
		regexp.MustCompile(`B\.?\s*NO\.?\s*[:\-]?\s*([A-Z0-9\-]+)`),
	}
	labelDate = regexp.MustCompile(`\d{2}/\d{2}/\d{2,4}`)
)

// LabelFields holds the candidate fields recovered from label text
type LabelFields struct {
	BatchNo    string   `json:"batch_no"`
	MfgDate    string   `json:"mfg_date"`
	ExpiryDate string   `json:"expiry_date"`
	RawText    string   `json:"raw_text"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ParseLabelText extracts batch number and dates from recognised label text.
// The structured print line wins; otherwise batch and dates are matched
// independently. With a single date found it is taken as the expiry date.
func ParseLabelText(text string) LabelFields {
	clean := strings.ToUpper(strings.Join(strings.Fields(text), " "))

	fields := LabelFields{RawText: truncateRunes(clean, labelRawTextLimit)}

	if m := labelStructured.FindStringSubmatch(clean); m != nil {
		fields.MfgDate, fields.ExpiryDate, fields.BatchNo = m[1], m[2], m[3]
		return fields
	}

	for _, re := range labelBatch {
		if m := re.FindStringSubmatch(clean); m != nil {
			fields.BatchNo = m[1]
			break
		}
	}

	switch dates := labelDate.FindAllString(clean, -1); {
	case len(dates) >= 2:
		fields.MfgDate, fields.ExpiryDate = dates[0], dates[1]
	case len(dates) == 1:
		fields.ExpiryDate = dates[0]
	}

	if fields.BatchNo == "" {
		fields.Warnings = append(fields.Warnings, "batch number not found")
	}
	if fields.ExpiryDate == "" {
		fields.Warnings = append(fields.Warnings, "expiry date not found")
	}
	return fields
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
