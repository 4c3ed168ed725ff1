package configuration

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

// Plan is a membership tier that can be bought through PayFast
type Plan struct {
	Code        string  `yaml:"code" json:"code"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Amount      float64 `yaml:"amount" json:"amount"`
	Months      int     `yaml:"months" json:"months"`
}

// Free plans never expire and cannot be paid for
func (p Plan) Free() bool {
	return p.Amount == 0
}

var plans map[string]Plan

func init() {
	var err error
	plans, err = ParsePlans(plansYAML)
	if err != nil {
		panic(err)
	}
}

// ParsePlans decodes a plan catalog
func ParsePlans(data []byte) (map[string]Plan, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}

	out := make(map[string]Plan, len(doc.Plans))
	for _, p := range doc.Plans {
		if p.Code == "" {
			return nil, fmt.Errorf("parse plans: plan without code")
		}
		if _, dup := out[p.Code]; dup {
			return nil, fmt.Errorf("parse plans: duplicate plan %q", p.Code)
		}
		out[p.Code] = p
	}
	return out, nil
}

// LookupPlan returns the catalog entry for a plan code
func LookupPlan(code string) (Plan, bool) {
	p, ok := plans[code]
	return p, ok
}

// Plans lists the catalog
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount < out[j].Amount
		}
		return out[i].Code < out[j].Code
	})
	return out
}
