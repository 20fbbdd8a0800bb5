package schema

import "time"

// RiskLevel is a closed ordinal severity used across analyzer outputs.
type RiskLevel string

// Recognized risk levels, ascending severity.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TrendDirection summarizes a least-squares slope over a daily series.
type TrendDirection string

// Recognized trend directions.
const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// DayValue pairs a UTC civil date with a value, used for peak reporting.
type DayValue struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Value int    `json:"value"`
}

// VelocityTrends is TimeAnalyzer's commit-frequency output.
type VelocityTrends struct {
	DailyVelocity  map[string]int `json:"daily_velocity"` // YYYY-MM-DD -> commit count
	WeeklyAverage  float64        `json:"weekly_average"`
	TrendDirection TrendDirection `json:"trend_direction"`
	Peak           DayValue       `json:"peak"`
	Partial        bool           `json:"partial,omitempty"`
}

// ActivityHeatmap is TimeAnalyzer's hour-of-week output. Rows are ISO
// weekday 1..7 (Monday=1), columns are UTC hour 0..23.
type ActivityHeatmap struct {
	Counts  [7][24]int `json:"counts"`
	PeakDay int        `json:"peak_day"`  // 1..7
	PeakHr  int        `json:"peak_hour"` // 0..23
	Partial bool       `json:"partial,omitempty"`
}

// AuthorShare pairs an author identity with a fractional share.
type AuthorShare struct {
	Author string  `json:"author"`
	Share  float64 `json:"share"`
}

// BusFactor is TimeAnalyzer's ownership-concentration output.
type BusFactor struct {
	K         int           `json:"bus_factor"`
	Ranked    []AuthorShare `json:"ranked"` // full author ranking desc by commit count
	RiskLevel RiskLevel     `json:"risk_level"`
	Partial   bool          `json:"partial,omitempty"`
}

// OwnershipMap is TeamAnalyzer's per-file weighted ownership output.
type OwnershipMap struct {
	Files   map[string][]AuthorShare `json:"files"`
	Partial bool                     `json:"partial,omitempty"`
}

// CoAuthorshipMatrix is TeamAnalyzer's symmetric pairwise collaboration
// score table, plus a ranked view of the strongest pairs. Scores is keyed
// by lexically ordered author pairs and is not JSON-serializable as-is;
// the documented JSON surface is TopPairs, which carries the same data.
type CoAuthorshipMatrix struct {
	Scores   map[[2]string]float64 `json:"-"` // key: [2]string{a, b} with a < b lexically
	TopPairs []AuthorPairScore     `json:"top_pairs"`
	Partial  bool                  `json:"partial,omitempty"`
}

// AuthorPairScore names a ranked co-authorship pair.
type AuthorPairScore struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// KnowledgeSilo flags a file whose history is concentrated in one author.
type KnowledgeSilo struct {
	Path           string     `json:"path"`
	PrimaryAuthor  string     `json:"primary_author"`
	OwnershipShare float64    `json:"ownership_share"`
	LastOtherTouch *time.Time `json:"last_other_touch,omitempty"`
	RiskLevel      RiskLevel  `json:"risk_level"`
}

// ChurnMetrics is QualityAnalyzer's instability output.
type ChurnMetrics struct {
	GlobalChurnRatio float64            `json:"churn_ratio"`
	PerFile          map[string]float64 `json:"per_file"`
	HighChurnFiles   []string           `json:"high_churn_files"`
	Partial          bool               `json:"partial,omitempty"`
}

// LargeChange flags a commit whose size exceeds the window's threshold.
type LargeChange struct {
	CommitHash     string  `json:"commit"`
	SizeScore      float64 `json:"size_score"`
	Classification string  `json:"classification"` // feature, refactor, fix, unknown
}

// RefactoringSignal is the set of commits flagged as refactors.
type RefactoringSignal struct {
	Hashes  map[string]bool `json:"hashes"`
	Partial bool            `json:"partial,omitempty"`
}

// RiskIndicator is one scored contribution to a RiskReport.
type RiskIndicator struct {
	Name               string    `json:"name"`
	Level              RiskLevel `json:"level"`
	Score              float64   `json:"score"`
	Description        string    `json:"description"`
	AffectedComponents []string  `json:"affected_components,omitempty"`
	Mitigation         string    `json:"mitigation"`
}

// RiskReport is RiskAssessor's aggregated output.
type RiskReport struct {
	Indicators      []RiskIndicator `json:"indicators"`
	OverallScore    float64         `json:"overall_score"`
	Level           RiskLevel       `json:"level"`
	Recommendations []string        `json:"recommendations"`
}

// AnalyzerBundle groups all analyzer outputs passed into RiskAssessor and
// the section renderers. Any pointer field may be nil when that analyzer
// was cancelled or skipped; RiskAssessor re-normalizes weights over the
// present subset. Silos is a plain slice where nil legitimately means
// "ran, found none", so its cancelled/skipped state is carried separately
// in SilosPartial.
type AnalyzerBundle struct {
	Velocity        *VelocityTrends
	Heatmap         *ActivityHeatmap
	Bus             *BusFactor
	Ownership       *OwnershipMap
	CoAuthorship    *CoAuthorshipMatrix
	Silos           []KnowledgeSilo
	SilosPartial    bool
	Churn           *ChurnMetrics
	ComplexityTrend map[string]float64
	LargeChanges    []LargeChange
	Refactors       *RefactoringSignal
}
