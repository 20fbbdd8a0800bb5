package contract

import "fmt"

// RawInput is the unvalidated configuration surface bound by viper from
// flags, environment variables, and config files in internal/cli. It is
// processed into an immutable Config before the engine ever sees it.
type RawInput struct {
	RepoPath string
	Format   string // standard | extended | json
	Since    string
	Until    string
	Range    bool
	NoEmoji  bool
	NoCache  bool

	VelocityWindowDays int
	PeakThreshold      float64
	BusFactorCutoff    float64

	OwnershipHalfLifeDays int
	SiloThreshold         float64
	SiloDays              int
	CollabWindowDays      int

	ChurnThreshold     float64
	LargeChangeLines   int
	RefactorKeywords   []string

	RiskWeightBus      float64
	RiskWeightSilos    float64
	RiskWeightChurn    float64
	RiskWeightVelocity float64

	ChartWidth  int
	ChartHeight int
	UseEmoji    bool

	SectionOverview bool
	SectionTime     bool
	SectionTeam     bool
	SectionQuality  bool
	SectionRisk     bool

	MaxCommits   int
	CacheSize    int
	DeadlineMS   int
}

// Config is the validated, immutable configuration for one pipeline
// invocation, built by ProcessAndValidate.
type Config struct {
	RepoPath string
	Format   string
	Since    string
	Until    string
	Range    bool
	NoEmoji  bool
	NoCache  bool

	VelocityWindowDays int
	PeakThreshold      float64
	BusFactorCutoff    float64

	OwnershipHalfLifeDays int
	SiloThreshold         float64
	SiloDays              int
	CollabWindowDays      int

	ChurnThreshold   float64
	LargeChangeLines int
	RefactorKeywords []string

	RiskWeights RiskWeights

	ChartWidth  int
	ChartHeight int
	UseEmoji    bool

	Sections SectionToggles

	MaxCommits int
	CacheSize  int
	DeadlineMS int
}

// RiskWeights are the per-indicator weights RiskAssessor blends with. They
// need not sum to 1; RiskAssessor normalizes over the indicators actually
// present.
type RiskWeights struct {
	Bus      float64
	Silos    float64
	Churn    float64
	Velocity float64
}

// SectionToggles controls which report sections are rendered.
type SectionToggles struct {
	Overview bool
	Time     bool
	Team     bool
	Quality  bool
	Risk     bool
}

// DefaultRawInput returns a RawInput populated with the documented
// defaults, before flag/env/file overrides are applied.
func DefaultRawInput() RawInput {
	return RawInput{
		Format:                "standard",
		Since:                 "7d",
		Until:                 "now",
		UseEmoji:              true,
		VelocityWindowDays:    7,
		PeakThreshold:         1.5,
		BusFactorCutoff:       0.5,
		OwnershipHalfLifeDays: 60,
		SiloThreshold:         0.8,
		SiloDays:              90,
		CollabWindowDays:      30,
		ChurnThreshold:        0.6,
		LargeChangeLines:      500,
		RefactorKeywords:      []string{"refactor", "cleanup", "rename", "reorg"},
		RiskWeightBus:         0.30,
		RiskWeightSilos:       0.25,
		RiskWeightChurn:       0.25,
		RiskWeightVelocity:    0.20,
		ChartWidth:            60,
		ChartHeight:           15,
		SectionOverview:       true,
		SectionTime:           true,
		SectionTeam:           true,
		SectionQuality:        true,
		SectionRisk:           true,
		MaxCommits:            50000,
		CacheSize:             100,
		DeadlineMS:            30000,
	}
}

// ProcessAndValidate turns a RawInput into an immutable Config, rejecting
// values that violate the documented ranges.
func ProcessAndValidate(raw RawInput) (Config, error) {
	switch raw.Format {
	case "standard", "extended", "json":
	default:
		return Config{}, WithKind(KindInvalidWindow, fmt.Errorf("unrecognized format %q", raw.Format))
	}
	if raw.MaxCommits <= 0 {
		return Config{}, WithKind(KindInvalidWindow, fmt.Errorf("engine.max_commits must be positive"))
	}
	if raw.CacheSize <= 0 {
		return Config{}, WithKind(KindInvalidWindow, fmt.Errorf("engine.cache_size must be positive"))
	}
	return Config{
		RepoPath:              raw.RepoPath,
		Format:                raw.Format,
		Since:                 raw.Since,
		Until:                 raw.Until,
		Range:                 raw.Range,
		NoEmoji:               raw.NoEmoji,
		NoCache:               raw.NoCache,
		VelocityWindowDays:    raw.VelocityWindowDays,
		PeakThreshold:         raw.PeakThreshold,
		BusFactorCutoff:       raw.BusFactorCutoff,
		OwnershipHalfLifeDays: raw.OwnershipHalfLifeDays,
		SiloThreshold:         raw.SiloThreshold,
		SiloDays:              raw.SiloDays,
		CollabWindowDays:      raw.CollabWindowDays,
		ChurnThreshold:        raw.ChurnThreshold,
		LargeChangeLines:      raw.LargeChangeLines,
		RefactorKeywords:      raw.RefactorKeywords,
		RiskWeights: RiskWeights{
			Bus:      raw.RiskWeightBus,
			Silos:    raw.RiskWeightSilos,
			Churn:    raw.RiskWeightChurn,
			Velocity: raw.RiskWeightVelocity,
		},
		ChartWidth:  raw.ChartWidth,
		ChartHeight: raw.ChartHeight,
		UseEmoji:    raw.UseEmoji && !raw.NoEmoji,
		Sections: SectionToggles{
			Overview: raw.SectionOverview,
			Time:     raw.SectionTime,
			Team:     raw.SectionTeam,
			Quality:  raw.SectionQuality,
			Risk:     raw.SectionRisk,
		},
		MaxCommits: raw.MaxCommits,
		CacheSize:  raw.CacheSize,
		DeadlineMS: raw.DeadlineMS,
	}, nil
}
