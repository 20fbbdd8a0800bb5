// Package report assembles section renderer output (and a direct JSON
// schema) into the two documented report entry points: a single-commit
// report and a range report, plus a columnar export for CI ingestion.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/gitbeacon/beacon/internal/contract"
	"github.com/gitbeacon/beacon/render/section"
	"github.com/gitbeacon/beacon/schema"
)

// Bundle is everything the Analytics Engine hands to the Report Formatter:
// the dataset plus every analyzer output (some possibly nil/partial).
type Bundle struct {
	Dataset *schema.CommitDataset
	Time    section.TimeInput
	Team    section.TeamInput
	Quality section.QualityInput
	Risk    schema.RiskReport
}

// namedRenderer pairs a Renderer with the config toggle and input it needs;
// order here is the stable on-screen section order.
type namedRenderer struct {
	enabled  func(contract.SectionToggles) bool
	renderer section.Renderer
	input    func(Bundle) any
}

var renderers = []namedRenderer{
	{func(s contract.SectionToggles) bool { return s.Overview }, section.OverviewRenderer{}, func(b Bundle) any { return b.Dataset }},
	{func(s contract.SectionToggles) bool { return s.Time }, section.TimeRenderer{}, func(b Bundle) any { return b.Time }},
	{func(s contract.SectionToggles) bool { return s.Team }, section.TeamRenderer{}, func(b Bundle) any { return b.Team }},
	{func(s contract.SectionToggles) bool { return s.Quality }, section.QualityRenderer{}, func(b Bundle) any { return b.Quality }},
	{func(s contract.SectionToggles) bool { return s.Risk }, section.RiskRenderer{}, func(b Bundle) any { return b.Risk }},
}

// FormatRange glues every enabled section with one blank separator line.
func FormatRange(w io.Writer, bundle Bundle, cfg contract.Config) error {
	first := true
	for _, nr := range renderers {
		if !nr.enabled(cfg.Sections) {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		if err := nr.renderer.Render(w, nr.input(bundle), &cfg); err != nil {
			return err
		}
	}
	return nil
}

// Impact is the commit-level impact label, derived from files-changed and
// lines-changed thresholds.
type Impact string

// Recognized impact levels.
const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

func impactFor(filesChanged, linesChanged int) Impact {
	switch {
	case filesChanged > 10 || linesChanged > 500:
		return ImpactHigh
	case filesChanged > 3 || linesChanged > 100:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// commitJSONFile is the per-file row of the single-commit JSON schema.
type commitJSONFile struct {
	Path         string `json:"path"`
	LinesAdded   int    `json:"lines_added"`
	LinesDeleted int    `json:"lines_deleted"`
	Status       string `json:"status"`
	Extension    string `json:"extension"`
	Component    string `json:"component"`
}

type commitJSON struct {
	Hash         string           `json:"hash"`
	ShortHash    string           `json:"short_hash"`
	Author       string           `json:"author"`
	Date         string           `json:"date"`
	Message      string           `json:"message"`
	FilesChanged int              `json:"files_changed"`
	LinesAdded   int              `json:"lines_added"`
	LinesDeleted int              `json:"lines_deleted"`
	NetChange    int              `json:"net_change"`
	Impact       Impact           `json:"impact"`
	Files        []commitJSONFile `json:"files"`
}

// FormatCommit renders one Commit with its impact label and per-file
// lines; when extended is set it also prints the file-type histogram and
// the component breakdown.
func FormatCommit(w io.Writer, c schema.Commit, extended bool) error {
	added, deleted := c.LinesAdded(), c.LinesDeleted()
	fmt.Fprintf(w, "commit %s\n", c.Hash)
	fmt.Fprintf(w, "author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(w, "date: %s\n", c.CommittedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "\n    %s\n\n", c.Message)
	fmt.Fprintf(w, "%d files changed, %d insertions(+), %d deletions(-)\n", len(c.Files), added, deleted)
	for _, f := range c.Files {
		fmt.Fprintf(w, "  %s %s +%d -%d\n", f.Status, f.Path, f.LinesAdded, f.LinesDeleted)
	}
	if extended {
		histogram := map[string]int{}
		componentCounts := map[string]int{}
		for _, f := range c.Files {
			histogram[f.Extension]++
			componentCounts[f.Component]++
		}
		fmt.Fprintf(w, "\nimpact: %s\n", impactFor(len(c.Files), added+deleted))
		fmt.Fprintln(w, "file types:")
		for _, ext := range sortedKeys(histogram) {
			fmt.Fprintf(w, "  .%s: %d\n", ext, histogram[ext])
		}
		fmt.Fprintln(w, "components:")
		for _, comp := range sortedKeys(componentCounts) {
			fmt.Fprintf(w, "  %s: %d\n", comp, componentCounts[comp])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rangeJSON is the documented range JSON schema.
type rangeJSON struct {
	Window struct {
		Since string `json:"since"`
		Until string `json:"until"`
	} `json:"window"`
	Totals struct {
		Commits      int `json:"commits"`
		FilesChanged int `json:"files_changed"`
		LinesAdded   int `json:"lines_added"`
		LinesDeleted int `json:"lines_deleted"`
	} `json:"totals"`
	Authors map[string]int       `json:"authors"`
	Time    section.TimeInput    `json:"time"`
	Team    section.TeamInput    `json:"team"`
	Quality section.QualityInput `json:"quality"`
	Risk    schema.RiskReport    `json:"risk"`
}

// ToJSON serializes the commit, or the range bundle, into the stable
// documented JSON schema. Exactly one of commit/bundle should be non-nil.
func ToJSON(w io.Writer, commit *schema.Commit, bundle *Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if commit != nil {
		added, deleted := commit.LinesAdded(), commit.LinesDeleted()
		out := commitJSON{
			Hash:         commit.Hash,
			ShortHash:    shortHash(commit.Hash),
			Author:       fmt.Sprintf("%s <%s>", commit.Author.Name, commit.Author.Email),
			Date:         commit.CommittedAt.Format("2006-01-02T15:04:05Z"),
			Message:      commit.Message,
			FilesChanged: len(commit.Files),
			LinesAdded:   added,
			LinesDeleted: deleted,
			NetChange:    added - deleted,
			Impact:       impactFor(len(commit.Files), added+deleted),
		}
		for _, f := range commit.Files {
			out.Files = append(out.Files, commitJSONFile{
				Path: f.Path, LinesAdded: f.LinesAdded, LinesDeleted: f.LinesDeleted,
				Status: string(f.Status), Extension: f.Extension, Component: f.Component,
			})
		}
		return enc.Encode(out)
	}

	if bundle == nil {
		return fmt.Errorf("report: ToJSON requires a commit or a bundle")
	}
	var out rangeJSON
	out.Window.Since = bundle.Dataset.Window.Since.Format("2006-01-02T15:04:05Z")
	out.Window.Until = bundle.Dataset.Window.Until.Format("2006-01-02T15:04:05Z")
	out.Authors = map[string]int{}
	files := map[string]bool{}
	for _, c := range bundle.Dataset.Commits {
		out.Authors[schema.AuthorIdentity(c.Author)]++
		for _, f := range c.Files {
			out.Totals.LinesAdded += f.LinesAdded
			out.Totals.LinesDeleted += f.LinesDeleted
			files[f.Path] = true
		}
	}
	out.Totals.Commits = len(bundle.Dataset.Commits)
	out.Totals.FilesChanged = len(files)
	out.Time = bundle.Time
	out.Team = bundle.Team
	out.Quality = bundle.Quality
	out.Risk = bundle.Risk
	return enc.Encode(out)
}

// shortHash mirrors common VCS convention (first 7 hex characters).
func shortHash(hash string) string {
	if len(hash) <= 7 {
		return hash
	}
	return hash[:7]
}

// deterministicJSON is a test/verification helper: it serializes twice and
// compares byte-for-byte, proving the serializer has no nondeterministic
// map-iteration leakage (json.Marshal already sorts map keys, but slices
// built from map iteration upstream could still leak nondeterminism).
func deterministicJSON(commit *schema.Commit, bundle *Bundle) (bool, error) {
	var a, b bytes.Buffer
	if err := ToJSON(&a, commit, bundle); err != nil {
		return false, err
	}
	if err := ToJSON(&b, commit, bundle); err != nil {
		return false, err
	}
	return a.String() == b.String(), nil
}
