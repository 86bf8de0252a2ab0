// Package modifier holds the upgrade catalog and the engine that offers,
// sells, applies and expires upgrades during a duel.
package modifier

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"chaosclash/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// DurationKind says how long a purchased upgrade stays active.
type DurationKind string

const (
	DurationPermanent DurationKind = "permanent"
	DurationSingle    DurationKind = "single"
	DurationRounds    DurationKind = "rounds"
)

// Duration is "permanent", "single" or a number of rounds.
type Duration struct {
	Kind   DurationKind
	Rounds int
}

// UnmarshalYAML accepts the keywords or a bare integer.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	switch value.Value {
	case string(DurationPermanent):
		*d = Duration{Kind: DurationPermanent}
		return nil
	case string(DurationSingle):
		*d = Duration{Kind: DurationSingle}
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, value.Value)
	}
	*d = Duration{Kind: DurationRounds, Rounds: n}
	return nil
}

// MarshalJSON renders rounds durations as a number and the rest as keywords.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.Kind == DurationRounds {
		return json.Marshal(d.Rounds)
	}
	return json.Marshal(string(d.Kind))
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = Duration{Kind: DurationRounds, Rounds: n}
		return nil
	}
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration{Kind: DurationKind(kind)}
	return nil
}

// EffectKind names how an upgrade adjusts round deltas.
type EffectKind string

const (
	EffectExtraDamage     EffectKind = "extra_damage"
	EffectDamageReduction EffectKind = "damage_reduction"
	EffectBonusCoins      EffectKind = "bonus_coins"
	EffectBonusChaos      EffectKind = "bonus_chaos"
	EffectHeal            EffectKind = "heal"
	EffectThorns          EffectKind = "thorns"
)

// Condition gates whether an effect fires in a given round.
type Condition string

const (
	ConditionAlways           Condition = "always"
	ConditionPlayedAffinity   Condition = "played_affinity"
	ConditionWon              Condition = "won"
	ConditionLost             Condition = "lost"
	ConditionDraw             Condition = "draw"
	ConditionWonWithAffinity  Condition = "won_with_affinity"
	ConditionLostWithAffinity Condition = "lost_with_affinity"
)

var knownEffects = map[EffectKind]bool{
	EffectExtraDamage:     true,
	EffectDamageReduction: true,
	EffectBonusCoins:      true,
	EffectBonusChaos:      true,
	EffectHeal:            true,
	EffectThorns:          true,
}

var knownConditions = map[Condition]bool{
	ConditionAlways:           true,
	ConditionPlayedAffinity:   true,
	ConditionWon:              true,
	ConditionLost:             true,
	ConditionDraw:             true,
	ConditionWonWithAffinity:  true,
	ConditionLostWithAffinity: true,
}

// Effect is the declarative part of an upgrade.
type Effect struct {
	Kind      EffectKind `yaml:"kind" json:"kind"`
	Magnitude int        `yaml:"magnitude" json:"magnitude"`
	Condition Condition  `yaml:"condition" json:"condition"`
}

// Upgrade is an immutable catalog entry.
type Upgrade struct {
	ID           string      `yaml:"id" json:"id"`
	Name         string      `yaml:"name" json:"name"`
	Cost         int         `yaml:"cost" json:"cost"`
	MoveAffinity domain.Move `yaml:"move_affinity" json:"move_affinity"`
	ChaosGrant   int         `yaml:"chaos_grant" json:"chaos_grant"`
	Duration     Duration    `yaml:"duration" json:"duration"`
	Effect       Effect      `yaml:"effect" json:"effect"`
}

// Catalog is the read-only set of upgrades, safe to share between matches.
type Catalog struct {
	upgrades []Upgrade
	byID     map[string]Upgrade
}

type catalogDocument struct {
	Upgrades []Upgrade `yaml:"upgrades"`
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return NewCatalog(doc.Upgrades)
}

// LoadCatalogFile reads a catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
	defaultCatalogErr  error
)

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(defaultCatalogYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// NewCatalog validates upgrades and indexes them by id. Input order is kept.
func NewCatalog(upgrades []Upgrade) (*Catalog, error) {
	c := &Catalog{
		upgrades: make([]Upgrade, 0, len(upgrades)),
		byID:     make(map[string]Upgrade, len(upgrades)),
	}
	for _, u := range upgrades {
		if err := validateUpgrade(u); err != nil {
			return nil, err
		}
		if _, dup := c.byID[u.ID]; dup {
			return nil, fmt.Errorf("duplicate upgrade id %q", u.ID)
		}
		c.upgrades = append(c.upgrades, u)
		c.byID[u.ID] = u
	}
	return c, nil
}

func validateUpgrade(u Upgrade) error {
	switch {
	case u.ID == "":
		return fmt.Errorf("upgrade %q: id is required", u.Name)
	case !u.MoveAffinity.Valid():
		return fmt.Errorf("upgrade %q: invalid move affinity %q", u.ID, u.MoveAffinity)
	case u.Cost < 0:
		return fmt.Errorf("upgrade %q: cost must not be negative", u.ID)
	case u.ChaosGrant < 0:
		return fmt.Errorf("upgrade %q: chaos grant must not be negative", u.ID)
	case !knownEffects[u.Effect.Kind]:
		return fmt.Errorf("upgrade %q: unknown effect kind %q", u.ID, u.Effect.Kind)
	case !knownConditions[u.Effect.Condition]:
		return fmt.Errorf("upgrade %q: unknown condition %q", u.ID, u.Effect.Condition)
	case u.Effect.Magnitude < 0:
		return fmt.Errorf("upgrade %q: magnitude must not be negative", u.ID)
	}

	switch u.Duration.Kind {
	case DurationPermanent, DurationSingle:
	case DurationRounds:
		if u.Duration.Rounds <= 0 {
			return fmt.Errorf("upgrade %q: round duration must be positive", u.ID)
		}
	default:
		return fmt.Errorf("upgrade %q: duration is required", u.ID)
	}
	return nil
}

// Get looks up an upgrade by id.
func (c *Catalog) Get(id string) (Upgrade, bool) {
	u, ok := c.byID[id]
	return u, ok
}

// All returns a copy of every upgrade in catalog order.
func (c *Catalog) All() []Upgrade {
	return append([]Upgrade(nil), c.upgrades...)
}

// ByAffinity returns the upgrades tied to move, in catalog order.
func (c *Catalog) ByAffinity(move domain.Move) []Upgrade {
	var out []Upgrade
	for _, u := range c.upgrades {
		if u.MoveAffinity == move {
			out = append(out, u)
		}
	}
	return out
}

// Len is the number of upgrades.
func (c *Catalog) Len() int {
	return len(c.upgrades)
}
