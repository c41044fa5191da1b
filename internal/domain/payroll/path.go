package payroll

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var pathReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", ".")

// BuildDocumentPath builds the blob path of a document:
// {monthYear}/{subFolder}/{companyName}/{documentType} - {companyName} - {date}.{ext}
func BuildDocumentPath(monthYear string, set DocumentSet, companyName string, slot DocumentSlot, date time.Time, filename string) string {
	company := sanitizeSegment(companyName)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		ext = "pdf"
	}
	name := fmt.Sprintf("%s - %s - %s.%s", strings.ToUpper(string(slot)), company, date.Format("2006-01-02"), ext)
	return strings.Join([]string{sanitizeSegment(monthYear), set.SubFolder, company, name}, "/")
}

func sanitizeSegment(s string) string {
	return strings.TrimSpace(pathReplacer.Replace(s))
}
