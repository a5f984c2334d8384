package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mspkit/delegate/internal/apierror"
	"github.com/mspkit/delegate/internal/guests"
)

func writeGuestList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guests.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadGuestList(t *testing.T) {
	path := writeGuestList(t, "DisplayName,Email,Tag\nAna Admin, ana@msp.example ,MSP-001\nBo Breakglass,bo@msp.example\n")

	records, err := loadGuestList(path, "MSP-OPS")
	require.NoError(t, err)
	require.Equal(t, []guests.Record{
		{DisplayName: "Ana Admin", Email: "ana@msp.example", EmployeeTag: "MSP-001"},
		{DisplayName: "Bo Breakglass", Email: "bo@msp.example", EmployeeTag: "MSP-OPS"},
	}, records)
}

func TestLoadGuestListNoHeader(t *testing.T) {
	path := writeGuestList(t, "Ana Admin,ana@msp.example\n")

	records, err := loadGuestList(path, "MSP-OPS")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "MSP-OPS", records[0].EmployeeTag)
}

func TestLoadGuestListInvalidEmail(t *testing.T) {
	path := writeGuestList(t, "Name,Email\nAna Admin,not-an-email\n")

	_, err := loadGuestList(path, "")
	var confErr *apierror.Configuration
	require.ErrorAs(t, err, &confErr)
	require.Contains(t, err.Error(), "row 2")
}

func TestLoadGuestListEmpty(t *testing.T) {
	path := writeGuestList(t, "Name,Email\n\n")

	_, err := loadGuestList(path, "")
	var confErr *apierror.Configuration
	require.ErrorAs(t, err, &confErr)
}

func TestLoadGuestListMissingFile(t *testing.T) {
	_, err := loadGuestList(filepath.Join(t.TempDir(), "absent.csv"), "")
	var confErr *apierror.Configuration
	require.ErrorAs(t, err, &confErr)
}
