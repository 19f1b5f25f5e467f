package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"Candidate", "Phone"},
		Rows: []map[string]string{
			{"Candidate": "Asha Rao", "Phone": "9000000001"},
			{"Candidate": "Vikram Shetty", "Phone": "9000000002"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	body := strings.TrimPrefix(string(out), "﻿")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Candidate,Phone", lines[0])
	require.Contains(t, lines[1], "Asha Rao")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestCSVExporterMissingCellsRenderEmpty(t *testing.T) {
	data := Dataset{
		Headers: []string{"Candidate", "Phone"},
		Rows:    []map[string]string{{"Candidate": "Asha Rao"}},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	require.Contains(t, string(out), "Asha Rao,")
}
