package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// weightSumTolerance is the permitted deviation when checking that the
// weights of a formula sum to 1.0.
const weightSumTolerance = 1e-6

// Configuration validation errors. Weight and ratio tables are validated
// once at engine construction, never per-request.
var (
	ErrWeightsNotNormalized = errors.New("weights must sum to 1.0")
	ErrRatiosExceedOne      = errors.New("category ratios must sum to at most 1.0")
	ErrNonPositiveTau       = errors.New("decay constant must be positive")
	ErrNonPositiveTarget    = errors.New("target rate must be positive")
)

// FriendsWeights blends signals for close-friend content.
type FriendsWeights struct {
	Recency      float64 `json:"recency"`      // default 0.40
	Engagement   float64 `json:"engagement"`   // default 0.25
	Relationship float64 `json:"relationship"` // default 0.20
	Meaningful   float64 `json:"meaningful"`   // default 0.15
}

// FollowingWeights blends signals for followed-creator content.
type FollowingWeights struct {
	Recency    float64 `json:"recency"`    // default 0.40
	Engagement float64 `json:"engagement"` // default 0.35
	Interest   float64 `json:"interest"`   // default 0.25
}

// GroupsWeights blends signals for group content.
type GroupsWeights struct {
	Recency    float64 `json:"recency"`    // default 0.35
	Engagement float64 `json:"engagement"` // default 0.35
	Interest   float64 `json:"interest"`   // default 0.30
}

// PagesWeights blends signals for page content.
type PagesWeights struct {
	Quality    float64 `json:"quality"`    // default 0.40
	Interest   float64 `json:"interest"`   // default 0.35
	Engagement float64 `json:"engagement"` // default 0.25
}

// InterestWeights blends signals for interest-matched content.
type InterestWeights struct {
	Interest float64 `json:"interest"` // default 0.50
	Quality  float64 `json:"quality"`  // default 0.30
	Viral    float64 `json:"viral"`    // default 0.20
}

// DiscoveryWeights blends signals for suggested/discovery content.
type DiscoveryWeights struct {
	Viral   float64 `json:"viral"`   // default 0.45
	Quality float64 `json:"quality"` // default 0.35
	Novelty float64 `json:"novelty"` // default 0.20
}

// CircleWeights blends signals for the circle feed, where social graph
// and location dominate.
type CircleWeights struct {
	Social     float64 `json:"social"`     // default 0.50
	Proximity  float64 `json:"proximity"`  // default 0.25
	Engagement float64 `json:"engagement"` // default 0.15
	Recency    float64 `json:"recency"`    // default 0.10
}

// KnownInterestWeights blends signals for curated known-interest items in
// the discover feed.
type KnownInterestWeights struct {
	Interest float64 `json:"interest"` // default 0.50
	Quality  float64 `json:"quality"`  // default 0.35
	Recency  float64 `json:"recency"`  // default 0.15
}

// ExplorationWeights blends signals for adjacent-interest items.
type ExplorationWeights struct {
	Adjacency float64 `json:"adjacency"` // default 0.35
	Quality   float64 `json:"quality"`   // default 0.35
	Viral     float64 `json:"viral"`     // default 0.30
}

// SurpriseWeights blends signals for surprise viral items.
type SurpriseWeights struct {
	Viral   float64 `json:"viral"`   // default 0.60
	Quality float64 `json:"quality"` // default 0.40
}

// QualityWeights configures the quality sub-score blend and its
// normalization targets.
type QualityWeights struct {
	Save    float64 `json:"save"`    // default 0.40
	Comment float64 `json:"comment"` // default 0.30
	Creator float64 `json:"creator"` // default 0.30

	TargetSaveRate    float64 `json:"target_save_rate"`    // default 0.05
	TargetCommentRate float64 `json:"target_comment_rate"` // default 0.02
	FollowerScale     float64 `json:"follower_scale"`      // default 10000
}

// Targets holds per-context engagement target rates and recency decay
// constants. All are tunables, not invariants.
type Targets struct {
	FriendsEngagementRate float64 `json:"friends_engagement_rate"` // default 0.12
	ViralEngagementRate   float64 `json:"viral_engagement_rate"`   // default 0.15
	CircleEngagementRate  float64 `json:"circle_engagement_rate"`  // default 0.10

	FriendsTauHours   float64 `json:"friends_tau_hours"`   // default 12
	DiscoveryTauHours float64 `json:"discovery_tau_hours"` // default 24
}

// Ratios maps each home-feed category to its target fraction of the final
// list. Budgets are computed by integer truncation of fraction × size, so
// sparse categories may under-fill the feed; the mixer never pads.
type Ratios struct {
	Friends   float64 `json:"friends"`   // default 0.42
	Following float64 `json:"following"` // default 0.175
	Groups    float64 `json:"groups"`    // default 0.105
	Pages     float64 `json:"pages"`     // default 0.12
	Interest  float64 `json:"interest"`  // default 0.08
	Discovery float64 `json:"discovery"` // default 0.10
}

// DiscoverRatios maps the discover-feed categories to their fractions.
type DiscoverRatios struct {
	Known       float64 `json:"known"`       // default 0.60
	Exploration float64 `json:"exploration"` // default 0.30
	Surprise    float64 `json:"surprise"`    // default 0.10
}

// Thresholds holds the classifier and mixer cut-offs.
type Thresholds struct {
	// PageFollowerCount is the creator follower count above which a
	// candidate classifies as page content.
	PageFollowerCount int `json:"page_follower_count"` // default 10000

	// InterestMatch is the minimum interest score for the INTEREST bucket.
	InterestMatch float64 `json:"interest_match"` // default 0.4

	// CreatorFatigueLimit caps how many items one creator may occupy in
	// the emitted feed.
	CreatorFatigueLimit int `json:"creator_fatigue_limit"` // default 3

	// TopicWindow is how many recently emitted items contribute to the
	// rolling topic-overlap check.
	TopicWindow int `json:"topic_window"` // default 3

	// TopicOverlapLimit drops a candidate whose topic set overlaps the
	// rolling window in at least this many tags.
	TopicOverlapLimit int `json:"topic_overlap_limit"` // default 2
}

// Weights holds every tunable of the ranking engine.
type Weights struct {
	Friends       FriendsWeights       `json:"friends"`
	Following     FollowingWeights     `json:"following"`
	Groups        GroupsWeights        `json:"groups"`
	Pages         PagesWeights         `json:"pages"`
	Interest      InterestWeights      `json:"interest"`
	Discovery     DiscoveryWeights     `json:"discovery"`
	Circle        CircleWeights        `json:"circle"`
	KnownInterest KnownInterestWeights `json:"known_interest"`
	Exploration   ExplorationWeights   `json:"exploration"`
	Surprise      SurpriseWeights      `json:"surprise"`

	Quality    QualityWeights `json:"quality"`
	Targets    Targets        `json:"targets"`
	Ratios     Ratios         `json:"ratios"`
	Discover   DiscoverRatios `json:"discover_ratios"`
	Thresholds Thresholds     `json:"thresholds"`
}

// CalibrationConfig is the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the default tuning. Each formula's weights sum
// to 1.0 and the home-feed ratios sum to 1.0.
func DefaultWeights() *Weights {
	return &Weights{
		Friends:       FriendsWeights{Recency: 0.40, Engagement: 0.25, Relationship: 0.20, Meaningful: 0.15},
		Following:     FollowingWeights{Recency: 0.40, Engagement: 0.35, Interest: 0.25},
		Groups:        GroupsWeights{Recency: 0.35, Engagement: 0.35, Interest: 0.30},
		Pages:         PagesWeights{Quality: 0.40, Interest: 0.35, Engagement: 0.25},
		Interest:      InterestWeights{Interest: 0.50, Quality: 0.30, Viral: 0.20},
		Discovery:     DiscoveryWeights{Viral: 0.45, Quality: 0.35, Novelty: 0.20},
		Circle:        CircleWeights{Social: 0.50, Proximity: 0.25, Engagement: 0.15, Recency: 0.10},
		KnownInterest: KnownInterestWeights{Interest: 0.50, Quality: 0.35, Recency: 0.15},
		Exploration:   ExplorationWeights{Adjacency: 0.35, Quality: 0.35, Viral: 0.30},
		Surprise:      SurpriseWeights{Viral: 0.60, Quality: 0.40},
		Quality: QualityWeights{
			Save: 0.40, Comment: 0.30, Creator: 0.30,
			TargetSaveRate: 0.05, TargetCommentRate: 0.02, FollowerScale: 10000,
		},
		Targets: Targets{
			FriendsEngagementRate: 0.12,
			ViralEngagementRate:   0.15,
			CircleEngagementRate:  0.10,
			FriendsTauHours:       12,
			DiscoveryTauHours:     24,
		},
		Ratios: Ratios{
			Friends: 0.42, Following: 0.175, Groups: 0.105,
			Pages: 0.12, Interest: 0.08, Discovery: 0.10,
		},
		Discover: DiscoverRatios{Known: 0.60, Exploration: 0.30, Surprise: 0.10},
		Thresholds: Thresholds{
			PageFollowerCount:   10000,
			InterestMatch:       0.4,
			CreatorFatigueLimit: 3,
			TopicWindow:         3,
			TopicOverlapLimit:   2,
		},
	}
}

// Validate checks every weight table and ratio table. It is intended to be
// called once at engine construction; an error here means the engine must
// not start.
func (w *Weights) Validate() error {
	sums := []struct {
		name string
		sum  float64
	}{
		{"friends", w.Friends.Recency + w.Friends.Engagement + w.Friends.Relationship + w.Friends.Meaningful},
		{"following", w.Following.Recency + w.Following.Engagement + w.Following.Interest},
		{"groups", w.Groups.Recency + w.Groups.Engagement + w.Groups.Interest},
		{"pages", w.Pages.Quality + w.Pages.Interest + w.Pages.Engagement},
		{"interest", w.Interest.Interest + w.Interest.Quality + w.Interest.Viral},
		{"discovery", w.Discovery.Viral + w.Discovery.Quality + w.Discovery.Novelty},
		{"circle", w.Circle.Social + w.Circle.Proximity + w.Circle.Engagement + w.Circle.Recency},
		{"known_interest", w.KnownInterest.Interest + w.KnownInterest.Quality + w.KnownInterest.Recency},
		{"exploration", w.Exploration.Adjacency + w.Exploration.Quality + w.Exploration.Viral},
		{"surprise", w.Surprise.Viral + w.Surprise.Quality},
		{"quality", w.Quality.Save + w.Quality.Comment + w.Quality.Creator},
	}
	for _, s := range sums {
		if math.Abs(s.sum-1.0) > weightSumTolerance {
			return fmt.Errorf("%w: %s weights sum to %.4f", ErrWeightsNotNormalized, s.name, s.sum)
		}
	}

	ratioSum := w.Ratios.Friends + w.Ratios.Following + w.Ratios.Groups +
		w.Ratios.Pages + w.Ratios.Interest + w.Ratios.Discovery
	if ratioSum > 1.0+weightSumTolerance {
		return fmt.Errorf("%w: home ratios sum to %.4f", ErrRatiosExceedOne, ratioSum)
	}

	discoverSum := w.Discover.Known + w.Discover.Exploration + w.Discover.Surprise
	if discoverSum > 1.0+weightSumTolerance {
		return fmt.Errorf("%w: discover ratios sum to %.4f", ErrRatiosExceedOne, discoverSum)
	}

	if w.Targets.FriendsTauHours <= 0 || w.Targets.DiscoveryTauHours <= 0 {
		return ErrNonPositiveTau
	}
	if w.Targets.FriendsEngagementRate <= 0 || w.Targets.ViralEngagementRate <= 0 ||
		w.Targets.CircleEngagementRate <= 0 {
		return ErrNonPositiveTarget
	}
	if w.Quality.TargetSaveRate <= 0 || w.Quality.TargetCommentRate <= 0 || w.Quality.FollowerScale <= 0 {
		return ErrNonPositiveTarget
	}

	return nil
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// An empty path returns the defaults. On read or parse failure the defaults
// are returned alongside the error so callers can degrade gracefully.
// The loaded weights are validated before being returned.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultWeights(), &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibration file produced invalid weights, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("invalid calibration: %w", err)
	}

	slog.Info("loaded ranking calibration", "path", filePath, "version", config.Version)
	return merged, nil
}

// MergeCalibration merges override weights into base weights. Only sections
// whose weights are non-zero are applied, allowing partial calibration
// files. Returns a new Weights value; neither input is modified.
func MergeCalibration(base, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	result := *base
	if override == nil {
		return &result
	}

	if override.Friends != (FriendsWeights{}) {
		result.Friends = override.Friends
	}
	if override.Following != (FollowingWeights{}) {
		result.Following = override.Following
	}
	if override.Groups != (GroupsWeights{}) {
		result.Groups = override.Groups
	}
	if override.Pages != (PagesWeights{}) {
		result.Pages = override.Pages
	}
	if override.Interest != (InterestWeights{}) {
		result.Interest = override.Interest
	}
	if override.Discovery != (DiscoveryWeights{}) {
		result.Discovery = override.Discovery
	}
	if override.Circle != (CircleWeights{}) {
		result.Circle = override.Circle
	}
	if override.KnownInterest != (KnownInterestWeights{}) {
		result.KnownInterest = override.KnownInterest
	}
	if override.Exploration != (ExplorationWeights{}) {
		result.Exploration = override.Exploration
	}
	if override.Surprise != (SurpriseWeights{}) {
		result.Surprise = override.Surprise
	}
	if override.Quality != (QualityWeights{}) {
		result.Quality = override.Quality
	}
	if override.Targets != (Targets{}) {
		result.Targets = override.Targets
	}
	if override.Ratios != (Ratios{}) {
		result.Ratios = override.Ratios
	}
	if override.Discover != (DiscoverRatios{}) {
		result.Discover = override.Discover
	}
	if override.Thresholds != (Thresholds{}) {
		result.Thresholds = override.Thresholds
	}

	return &result
}
