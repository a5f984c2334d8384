package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/guests"
)

// loadGuestList reads a displayName,email[,tag] CSV into guest records.
// A header row is recognised by the absence of an @ in the email column.
// Rows without an explicit tag fall back to defaultTag.
func loadGuestList(path, defaultTag string) ([]guests.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &apierror.Configuration{Key: path, Msg: "guest list not readable"}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &apierror.Configuration{Key: path, Msg: fmt.Sprintf("guest list not valid CSV: %v", err)}
	}

	var records []guests.Record
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(row[0])
		email := strings.TrimSpace(row[1])
		if name == "" && email == "" {
			continue
		}
		if i == 0 && !strings.Contains(email, "@") {
			continue // header row
		}
		if !strings.Contains(email, "@") {
			return nil, &apierror.Configuration{Key: email, Msg: fmt.Sprintf("guest list row %d has no valid email", i+1)}
		}

		tag := defaultTag
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			tag = strings.TrimSpace(row[2])
		}

		records = append(records, guests.Record{
			DisplayName: name,
			Email:       email,
			EmployeeTag: tag,
		})
	}

	if len(records) == 0 {
		return nil, &apierror.Configuration{Key: path, Msg: "guest list contains no records"}
	}

	return records, nil
}
