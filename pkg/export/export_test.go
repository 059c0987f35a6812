package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agendaDoc() Document {
	return Document{
		Title:    "June 2025",
		Subtitle: "Family calendar",
		Data: Dataset{
			Headers: []string{"Date", "Category", "Title"},
			Rows: []map[string]string{
				{"Date": "2025-06-01", "Category": "countdowns", "Title": "Trip, day 1"},
				{"Date": "2025-06-02", "Category": "appointments", "Title": "Dentist"},
			},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(agendaDoc())
	require.NoError(t, err)
	assert.Equal(t, "Date,Category,Title\n2025-06-01,countdowns,\"Trip, day 1\"\n2025-06-02,appointments,Dentist\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(agendaDoc())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Document{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Document{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" PDF ")
	assert.True(t, ok)
	assert.Equal(t, FormatPDF, f)

	f, ok = ParseFormat("")
	assert.True(t, ok)
	assert.Equal(t, FormatCSV, f)

	_, ok = ParseFormat("xlsx")
	assert.False(t, ok)

	r, err := RendererFor(FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "pdf", r.Extension())

	_, err = RendererFor("xlsx")
	assert.Error(t, err)
}
