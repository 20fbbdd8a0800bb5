package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
)

// FileExportRow is one file's window metrics in the columnar export,
// flattened for warehouse ingestion by CI pipelines.
type FileExportRow struct {
	// Path is the file path relative to the repository root.
	Path string `parquet:"path,snappy"`

	// Component is the logical bucket derived from path prefix rules.
	Component string `parquet:"component,snappy"`

	// Commits is the number of commits touching this file in the window.
	Commits int32 `parquet:"commits,snappy"`

	// LinesAdded / LinesDeleted are window totals for this file.
	LinesAdded   int32 `parquet:"lines_added,snappy"`
	LinesDeleted int32 `parquet:"lines_deleted,snappy"`

	// ChurnRatio is deleted / (added + deleted) for this file.
	ChurnRatio float64 `parquet:"churn_ratio,snappy"`

	// GrowthRate is the complexity-trend slope in lines/day (nullable when
	// the file has too few samples to regress).
	GrowthRate *float64 `parquet:"growth_rate,optional,snappy"`

	// PrimaryOwner is the top weighted owner (nullable when no lines were
	// touched).
	PrimaryOwner *string `parquet:"primary_owner,optional,snappy"`

	// OwnershipShare is the primary owner's weighted share.
	OwnershipShare float64 `parquet:"ownership_share,snappy"`

	// Silo is true when the file qualified as a knowledge silo.
	Silo bool `parquet:"silo,snappy"`
}

// ExportParquet flattens a range bundle's per-file metrics into parquet rows
// and writes them to w. Rows are ordered by path so repeated exports over
// the same inputs are byte-identical.
func ExportParquet(w io.Writer, bundle Bundle) error {
	rows := buildExportRows(bundle)
	writer := parquet.NewGenericWriter[FileExportRow](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("report: writing parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("report: closing parquet writer: %w", err)
	}
	return nil
}

func buildExportRows(bundle Bundle) []FileExportRow {
	type acc struct {
		commits   int
		added     int
		deleted   int
		component string
	}
	stats := map[string]*acc{}
	for _, c := range bundle.Dataset.Commits {
		seen := map[string]bool{}
		for _, f := range c.Files {
			a := stats[f.Path]
			if a == nil {
				a = &acc{component: f.Component}
				stats[f.Path] = a
			}
			a.added += f.LinesAdded
			a.deleted += f.LinesDeleted
			if !seen[f.Path] {
				a.commits++
				seen[f.Path] = true
			}
		}
	}

	siloPaths := map[string]bool{}
	for _, s := range bundle.Team.Silos {
		siloPaths[s.Path] = true
	}

	paths := make([]string, 0, len(stats))
	for p := range stats {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	rows := make([]FileExportRow, 0, len(paths))
	for _, p := range paths {
		a := stats[p]
		row := FileExportRow{
			Path:         p,
			Component:    a.component,
			Commits:      int32(a.commits),
			LinesAdded:   int32(a.added),
			LinesDeleted: int32(a.deleted),
			Silo:         siloPaths[p],
		}
		if total := a.added + a.deleted; total > 0 {
			row.ChurnRatio = float64(a.deleted) / float64(total)
		}
		if rate, ok := bundle.Quality.ComplexityTrend[p]; ok {
			r := rate
			row.GrowthRate = &r
		}
		if shares := bundle.Team.Ownership.Files[p]; len(shares) > 0 {
			owner := shares[0].Author
			row.PrimaryOwner = &owner
			row.OwnershipShare = shares[0].Share
		}
		rows = append(rows, row)
	}
	return rows
}
