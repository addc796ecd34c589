// Package priority holds the tunable numeric model behind task scoring:
// priority bands, the bonus calculators (distance, skill, chain
// continuation, in-progress resistance, task age, hauling tuning), the
// scheduler timing knobs, and the tier-ordered category list. Every field
// has a default, so Clear restores a fully usable configuration even when no
// document was ever loaded. The calculators are pure: they read only the
// loaded configuration and take all dynamic inputs as parameters, so they
// may be called concurrently for many agents per tick.
package priority

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Band names. Base values provide the coarse bucket a candidate task starts
// from before bonuses are added.
const (
	BandCritical    = "Critical"
	BandPlayerDraft = "PlayerDraft"
	BandNeeds       = "Needs"
	BandWorkHigh    = "WorkHigh"
	BandWorkMedium  = "WorkMedium"
	BandWorkLow     = "WorkLow"
	BandIdle        = "Idle"
)

// UnknownCategoryTier is returned by CategoryTier for names the work catalog
// never defined. 999 makes an unrecognized category sort last instead of
// crashing or jumping to the front.
const UnknownCategoryTier = 999.0

type DistanceConfig struct {
	OptimalDistance    float64 `yaml:"optimal_distance"`
	MaxPenaltyDistance float64 `yaml:"max_penalty_distance"`
	MaxBonus           int16   `yaml:"max_bonus"`
	MaxPenalty         int16   `yaml:"max_penalty"`
}

type SkillConfig struct {
	Multiplier float64 `yaml:"multiplier"`
	MaxBonus   int16   `yaml:"max_bonus"`
}

type ChainConfig struct {
	ContinuationBonus int16 `yaml:"continuation_bonus"`
}

type InProgressConfig struct {
	Bonus int16 `yaml:"bonus"`
}

type TaskAgeConfig struct {
	BonusPerMinute float64 `yaml:"bonus_per_minute"`
	MaxBonus       int16   `yaml:"max_bonus"`
}

// HaulingConfig exposes raw hauling thresholds and bonuses. Combining them
// into a score is the hauling task generator's job, not this package's.
type HaulingConfig struct {
	StorageCriticalThreshold  float64 `yaml:"storage_critical_threshold"`
	StorageCriticalBonus      int16   `yaml:"storage_critical_bonus"`
	BlockingConstructionBonus int16   `yaml:"blocking_construction_bonus"`
	PerishableSpoilThresholdS float64 `yaml:"perishable_spoil_threshold_s"`
	PerishableSpoilBonus      int16   `yaml:"perishable_spoil_bonus"`
	BatchingRadius            float64 `yaml:"batching_radius"`
	MaxBatchSize              int     `yaml:"max_batch_size"`
}

// TimingConfig carries scheduler parameters consumed by the task-selection
// loop; nothing in this package enforces them.
type TimingConfig struct {
	TaskSwitchThreshold   int16   `yaml:"task_switch_threshold"`
	ReevaluationIntervalS float64 `yaml:"reevaluation_interval_s"`
	ReservationTimeoutS   float64 `yaml:"reservation_timeout_s"`
}

// Config is the loaded priority model. Mutable only during Load, Clear and
// RebuildCategoryOrder; read-only otherwise.
type Config struct {
	bands      map[string]int16
	distance   DistanceConfig
	skill      SkillConfig
	chain      ChainConfig
	inProgress InProgressConfig
	taskAge    TaskAgeConfig
	hauling    HaulingConfig
	timing     TimingConfig

	categoryOrder []string
	explicitOrder bool
	categoryTiers map[string]float64
}

func NewConfig() *Config {
	c := &Config{}
	c.Clear()
	return c
}

func defaultBands() map[string]int16 {
	return map[string]int16{
		BandCritical:    30000,
		BandPlayerDraft: 20000,
		BandNeeds:       10000,
		BandWorkHigh:    5000,
		BandWorkMedium:  3000,
		BandWorkLow:     1000,
		BandIdle:        0,
	}
}

// Clear restores every documented default and forgets any loaded document
// and category order.
func (c *Config) Clear() {
	c.bands = defaultBands()
	c.distance = DistanceConfig{
		OptimalDistance:    5.0,
		MaxPenaltyDistance: 50.0,
		MaxBonus:           50,
		MaxPenalty:         100,
	}
	c.skill = SkillConfig{Multiplier: 5.0, MaxBonus: 100}
	c.chain = ChainConfig{ContinuationBonus: 150}
	c.inProgress = InProgressConfig{Bonus: 200}
	c.taskAge = TaskAgeConfig{BonusPerMinute: 10.0, MaxBonus: 100}
	c.hauling = HaulingConfig{
		StorageCriticalThreshold:  0.9,
		StorageCriticalBonus:      500,
		BlockingConstructionBonus: 300,
		PerishableSpoilThresholdS: 300.0,
		PerishableSpoilBonus:      400,
		BatchingRadius:            10.0,
		MaxBatchSize:              5,
	}
	c.timing = TimingConfig{
		TaskSwitchThreshold:   250,
		ReevaluationIntervalS: 2.0,
		ReservationTimeoutS:   30.0,
	}
	c.categoryOrder = nil
	c.explicitOrder = false
	c.categoryTiers = map[string]float64{}
}

type document struct {
	Bands         map[string]int16 `yaml:"bands"`
	Distance      DistanceConfig   `yaml:"distance"`
	Skill         SkillConfig      `yaml:"skill"`
	Chain         ChainConfig      `yaml:"chain"`
	InProgress    InProgressConfig `yaml:"in_progress"`
	TaskAge       TaskAgeConfig    `yaml:"task_age"`
	Hauling       HaulingConfig    `yaml:"hauling"`
	Timing        TimingConfig     `yaml:"timing"`
	CategoryOrder []string         `yaml:"category_order"`
}

// Load reads a priority tuning document. Absent keys keep their current
// values, so a partial or empty document degrades to the defaults; there is
// no "missing required field" error path here.
func (c *Config) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.LoadBytes(raw); err != nil {
		return fmt.Errorf("priority.yaml: %w", err)
	}
	return nil
}

func (c *Config) LoadBytes(raw []byte) error {
	doc := document{
		Distance:   c.distance,
		Skill:      c.skill,
		Chain:      c.chain,
		InProgress: c.inProgress,
		TaskAge:    c.taskAge,
		Hauling:    c.hauling,
		Timing:     c.timing,
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for name, base := range doc.Bands {
		c.bands[name] = base
	}
	c.distance = doc.Distance
	c.skill = doc.Skill
	c.chain = doc.Chain
	c.inProgress = doc.InProgress
	c.taskAge = doc.TaskAge
	c.hauling = doc.Hauling
	c.timing = doc.Timing
	if len(doc.CategoryOrder) > 0 {
		c.categoryOrder = append([]string(nil), doc.CategoryOrder...)
		c.explicitOrder = true
	}
	return nil
}

// BandBase returns the base value for a band, 0 for unknown names. Called
// per candidate per tick, so a miss must stay cheap and non-fatal.
func (c *Config) BandBase(name string) int16 {
	return c.bands[name]
}

// DistanceBonus returns the full bonus at or below the optimal distance, the
// full penalty (negated) at or above the max penalty distance, and a linear
// interpolation between the two, rounded to nearest.
func (c *Config) DistanceBonus(distance float64) int16 {
	d := c.distance
	if distance <= d.OptimalDistance {
		return d.MaxBonus
	}
	if distance >= d.MaxPenaltyDistance {
		return -d.MaxPenalty
	}
	norm := (distance - d.OptimalDistance) / (d.MaxPenaltyDistance - d.OptimalDistance)
	raw := float64(d.MaxBonus) - norm*(float64(d.MaxBonus)+float64(d.MaxPenalty))
	return int16(math.Round(raw))
}

// SkillBonus returns level*multiplier capped at the configured max. Skill
// levels are never negative, so neither is the result.
func (c *Config) SkillBonus(level float64) int16 {
	raw := level * c.skill.Multiplier
	if raw >= float64(c.skill.MaxBonus) {
		return c.skill.MaxBonus
	}
	return int16(math.Round(raw))
}

// ChainContinuationBonus rewards continuing an in-progress chain over
// starting an unrelated task.
func (c *Config) ChainContinuationBonus() int16 {
	return c.chain.ContinuationBonus
}

// InProgressBonus is the hysteresis bias that resists abandoning the current
// task for a marginally better alternative. Pair with
// Timing().TaskSwitchThreshold on the caller side.
func (c *Config) InProgressBonus() int16 {
	return c.inProgress.Bonus
}

// TaskAgeBonus returns (ageSeconds/60)*bonusPerMinute capped at the
// configured max. Long-unclaimed tasks eventually outrank fresher
// low-priority ones.
func (c *Config) TaskAgeBonus(ageSeconds float64) int16 {
	raw := ageSeconds / 60.0 * c.taskAge.BonusPerMinute
	if raw >= float64(c.taskAge.MaxBonus) {
		return c.taskAge.MaxBonus
	}
	return int16(math.Round(raw))
}

func (c *Config) Hauling() HaulingConfig { return c.hauling }

func (c *Config) Timing() TimingConfig { return c.timing }

// RebuildCategoryOrder rebuilds the category tier lookup from the work
// catalog's categories and, unless the loaded document declared an explicit
// category_order, derives the order tier-ascending (ties by name).
func (c *Config) RebuildCategoryOrder(tiersByCategory map[string]float64) {
	c.categoryTiers = make(map[string]float64, len(tiersByCategory))
	for name, tier := range tiersByCategory {
		c.categoryTiers[name] = tier
	}
	if c.explicitOrder {
		return
	}
	names := make([]string, 0, len(tiersByCategory))
	for name := range tiersByCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := tiersByCategory[names[i]], tiersByCategory[names[j]]
		if ti != tj {
			return ti < tj
		}
		return names[i] < names[j]
	})
	c.categoryOrder = names
}

// CategoryTier returns the tier for a category, UnknownCategoryTier for
// names the work catalog never defined.
func (c *Config) CategoryTier(name string) float64 {
	if tier, ok := c.categoryTiers[name]; ok {
		return tier
	}
	return UnknownCategoryTier
}

// CategoryOrder returns the canonical category ordering, highest priority
// (lowest tier) first.
func (c *Config) CategoryOrder() []string {
	return append([]string(nil), c.categoryOrder...)
}
