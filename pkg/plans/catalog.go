package plans

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FreemiumSlug identifies the free tier. It is never purchasable and never expires.
const FreemiumSlug = "freemium"

//go:embed plans.yaml
var defaultCatalog []byte

// Plan is a read-only subscription tier definition.
type Plan struct {
	Slug               string
	Name               string
	Price              decimal.Decimal
	DailyAnalysisLimit int
	DurationDays       *int // nil = unlimited
	TrialDays          int
	Savings            decimal.Decimal
	Description        string
	Features           []string
	IsActive           bool
	Popular            bool
}

// IsPaid reports whether the plan can be bought.
func (p Plan) IsPaid() bool {
	return p.Price.IsPositive()
}

// Duration returns the subscription length. ok is false for unlimited plans.
func (p Plan) Duration() (d time.Duration, ok bool) {
	if p.DurationDays == nil || *p.DurationDays <= 0 {
		return 0, false
	}
	return time.Duration(*p.DurationDays) * 24 * time.Hour, true
}

// EndFrom computes the end of a subscription started at start, nil for unlimited plans.
func (p Plan) EndFrom(start time.Time) *time.Time {
	d, ok := p.Duration()
	if !ok {
		return nil
	}
	end := start.Add(d)
	return &end
}

// Catalog is an immutable slug -> Plan lookup. Build it once at start and share it.
type Catalog struct {
	plans map[string]Plan
	order []string
}

type rawPlan struct {
	Slug               string   `yaml:"slug"`
	Name               string   `yaml:"name"`
	Price              string   `yaml:"price"`
	DailyAnalysisLimit int      `yaml:"daily_analysis_limit"`
	DurationDays       *int     `yaml:"duration_days"`
	TrialDays          int      `yaml:"trial_days"`
	Savings            string   `yaml:"savings"`
	Description        string   `yaml:"description"`
	Features           []string `yaml:"features"`
	IsActive           bool     `yaml:"is_active"`
	Popular            bool     `yaml:"popular"`
}

type rawCatalog struct {
	Plans []rawPlan `yaml:"plans"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("plans: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file, or returns the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}
	if len(raw.Plans) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}

	c := &Catalog{plans: make(map[string]Plan, len(raw.Plans))}
	for _, rp := range raw.Plans {
		if rp.Slug == "" {
			return nil, fmt.Errorf("plan without slug")
		}
		if _, dup := c.plans[rp.Slug]; dup {
			return nil, fmt.Errorf("duplicate plan slug %q", rp.Slug)
		}
		price, err := decimal.NewFromString(rp.Price)
		if err != nil {
			return nil, fmt.Errorf("plan %q: invalid price %q: %w", rp.Slug, rp.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("plan %q: negative price", rp.Slug)
		}
		savings := decimal.Zero
		if rp.Savings != "" {
			if savings, err = decimal.NewFromString(rp.Savings); err != nil {
				return nil, fmt.Errorf("plan %q: invalid savings %q: %w", rp.Slug, rp.Savings, err)
			}
		}
		if price.IsPositive() && rp.DurationDays == nil {
			return nil, fmt.Errorf("plan %q: paid plans need duration_days", rp.Slug)
		}

		c.plans[rp.Slug] = Plan{
			Slug:               rp.Slug,
			Name:               rp.Name,
			Price:              price,
			DailyAnalysisLimit: rp.DailyAnalysisLimit,
			DurationDays:       rp.DurationDays,
			TrialDays:          rp.TrialDays,
			Savings:            savings,
			Description:        rp.Description,
			Features:           append([]string(nil), rp.Features...),
			IsActive:           rp.IsActive,
			Popular:            rp.Popular,
		}
		c.order = append(c.order, rp.Slug)
	}

	if _, ok := c.plans[FreemiumSlug]; !ok {
		return nil, fmt.Errorf("plan catalog needs a %q plan", FreemiumSlug)
	}
	return c, nil
}

// Get returns the plan for slug.
func (c *Catalog) Get(slug string) (Plan, bool) {
	p, ok := c.plans[slug]
	return p, ok
}

// Active returns the active plans in catalog order.
func (c *Catalog) Active() []Plan {
	var res []Plan
	for _, slug := range c.order {
		if p := c.plans[slug]; p.IsActive {
			res = append(res, p)
		}
	}
	return res
}

// Premium returns the active paid plans ordered by price.
func (c *Catalog) Premium() []Plan {
	var res []Plan
	for _, p := range c.Active() {
		if p.IsPaid() {
			res = append(res, p)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Price.LessThan(res[j].Price)
	})
	return res
}

// DailyLimit returns the plan's daily analysis limit, falling back to freemium.
func (c *Catalog) DailyLimit(slug string) int {
	if p, ok := c.plans[slug]; ok {
		return p.DailyAnalysisLimit
	}
	return c.plans[FreemiumSlug].DailyAnalysisLimit
}

// Name returns a display name for slug, or the slug itself when unknown.
func (c *Catalog) Name(slug string) string {
	if p, ok := c.plans[slug]; ok {
		return p.Name
	}
	return slug
}
