package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderAppendsTotalsBand(t *testing.T) {
	data := Dataset{
		Headers: []string{"Date", "Hours", "Status"},
		Rows: []map[string]string{
			{"Date": "2026-03-02", "Hours": "4.0", "Status": "APPROVED"},
			{"Date": "2026-03-03", "Hours": "3.5", "Status": "PENDING_SUPERVISOR"},
		},
		Totals: map[string]string{"Date": "TOTAL", "Hours": "approved 4.0 / pending 3.5"},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Date,Hours,Status\n2026-03-02,4.0,APPROVED\n2026-03-03,3.5,PENDING_SUPERVISOR\nTOTAL,approved 4.0 / pending 3.5,\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
