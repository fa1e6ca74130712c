package risk

// Tier is the safety band derived from a depth score.
type Tier string

const (
	TierGreen  Tier = "green"
	TierAmber  Tier = "amber"
	TierOrange Tier = "orange"
	TierRed    Tier = "red"
	TierCrisis Tier = "crisis"
)

// Intervention is the action the orchestrator takes for a tier.
type Intervention string

const (
	InterventionNone        Intervention = "none"
	InterventionGrounding   Intervention = "grounding"
	InterventionPause       Intervention = "pause"
	InterventionIntegration Intervention = "integration"
	InterventionCrisis      Intervention = "crisis"
)

// Trigger names the reason a score contribution fired. It carries category
// labels only, never matched text or any fragment of user input.
type Trigger struct {
	Category     string `json:"category"`
	Level        string `json:"level"`
	PatternClass string `json:"pattern_class"`
}

// Assessment is the scorer's verdict for one piece of text.
type Assessment struct {
	DepthScore   float64      `json:"depth_score"`
	SafetyTier   Tier         `json:"safety_tier"`
	Intervention Intervention `json:"intervention"`
	Triggers     []Trigger    `json:"triggers,omitempty"`
}

// Crisis reports whether the assessment requires the crisis protocol.
func (a Assessment) Crisis() bool {
	return a.Intervention == InterventionCrisis
}

// Context is the session snapshot the scorer folds into the score. It is
// captured once per turn by the caller; the scorer itself never reads clocks
// or session state.
type Context struct {
	IterationCount  int
	DurationMinutes float64
	GroundingCount  int
	PriorDepthScore float64
}

// Band boundaries are a compliance-visible contract: inclusive lower bound,
// exclusive upper bound, except the top band which includes 1.0.
const (
	amberFloor  = 0.3
	orangeFloor = 0.5
	redFloor    = 0.7
	crisisFloor = 0.9
)

// TierFor maps a depth score onto its safety band.
func TierFor(score float64) Tier {
	switch {
	case score >= crisisFloor:
		return TierCrisis
	case score >= redFloor:
		return TierRed
	case score >= orangeFloor:
		return TierOrange
	case score >= amberFloor:
		return TierAmber
	default:
		return TierGreen
	}
}

// InterventionFor maps a safety band onto the orchestrator action.
func InterventionFor(tier Tier) Intervention {
	switch tier {
	case TierCrisis:
		return InterventionCrisis
	case TierRed:
		return InterventionIntegration
	case TierOrange:
		return InterventionPause
	case TierAmber:
		return InterventionGrounding
	default:
		return InterventionNone
	}
}
