// Package export turns ranked jobs into flat rows and writes them as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/jobmatch/internal/matcher/ranker"
)

// Filename is the suggested download name for exported rows.
const Filename = "recommended_jobs.csv"

// Header is the first CSV record.
var Header = []string{"id", "title", "company", "location", "score", "skills", "desc"}

// Row is one exported job. Skills are joined with "|".
type Row struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Score    int    `json:"score"`
	Skills   string `json:"skills"`
	Desc     string `json:"desc"`
}

func (r Row) record() []string {
	return []string{r.ID, r.Title, r.Company, r.Location, strconv.Itoa(r.Score), r.Skills, r.Desc}
}

// Rows maps scored jobs to rows, keeping their order.
func Rows(scored []ranker.ScoredJob) []Row {
	rows := make([]Row, len(scored))
	for i, sj := range scored {
		rows[i] = Row{
			ID:       string(sj.ID),
			Title:    sj.Title,
			Company:  sj.Company,
			Location: sj.Location,
			Score:    sj.Score,
			Skills:   strings.Join(sj.Skills, "|"),
			Desc:     sj.Description,
		}
	}
	return rows
}

// WriteCSV writes the header followed by one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
