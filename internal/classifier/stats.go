package classifier

import (
	"bufio"
	"bytes"
	"strings"
)

// Record is one row of the Git Log Extractor's compressed stats capture:
// just enough fields to classify a commit without parsing its diffstat.
type Record struct {
	Hash    string
	Date    string
	Email   string
	Subject string
}

// ParseStats parses the Git Log Extractor's stats-format capture
// (hash, date, email, subject, tab-separated, one commit per line). A
// line with fewer than four tab-separated fields is skipped rather than
// aborting the whole parse.
func ParseStats(raw []byte) []Record {
	records := make([]Record, 0, 256)

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 4)
		if len(fields) != 4 {
			continue
		}

		records = append(records, Record{
			Hash:    fields[0],
			Date:    fields[1],
			Email:   strings.ToLower(fields[2]),
			Subject: fields[3],
		})
	}

	return records
}
