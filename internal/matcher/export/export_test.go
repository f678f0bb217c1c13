package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
)

func TestRows(t *testing.T) {
	p := jobs.Samples()[0]
	rows := Rows([]ranker.ScoredJob{{Posting: p, Score: 100}})
	require.Len(t, rows, 1)
	assert.Equal(t, Row{
		ID:       "1",
		Title:    "Junior Web Developer",
		Company:  "TechWorks",
		Location: "Remote",
		Score:    100,
		Skills:   "javascript|html|css",
		Desc:     "Build web pages using HTML/CSS and JS.",
	}, rows[0])
}

func TestRows_Empty(t *testing.T) {
	assert.Empty(t, Rows(nil))
}

func TestWriteCSV(t *testing.T) {
	rows := []Row{
		{ID: "1", Title: "Dev", Company: "Acme", Location: "Remote", Score: 80, Skills: "go|sql", Desc: "Build things."},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Equal(t, "id,title,company,location,score,skills,desc\n1,Dev,Acme,Remote,80,go|sql,Build things.\n", buf.String())
}

func TestWriteCSV_QuotesCommas(t *testing.T) {
	rows := []Row{{ID: "7", Title: "Dev, Senior", Desc: `Says "hi", then leaves`}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"7", "Dev, Senior", "", "", "0", "", `Says "hi", then leaves`}, records[1])
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "id,title,company,location,score,skills,desc\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriterError(t *testing.T) {
	err := WriteCSV(failingWriter{}, []Row{{ID: "1"}})
	assert.ErrorContains(t, err, "disk full")
}
