package testdef

import (
	"strings"

	"gauntlet/internal/params"
	"gauntlet/pkg/logging"
)

// Criteria selects the subset of loaded cases a run executes.
type Criteria struct {
	// Category keeps only cases of this category (empty selects all)
	Category string
	// Area keeps only cases of this area (empty selects all)
	Area string
	// Tags keeps cases carrying at least one of these tags
	Tags []string
	// Names keeps exactly the named cases
	Names []string
	// MaxPriority keeps cases at this priority or more critical; -1 selects all
	MaxPriority int
	// Exclude drops the named cases after all other filters
	Exclude []string
}

// Keys controllers read selection criteria from.
const (
	KeyCategory = "category"
	KeyArea     = "area"
	KeyTags     = "tags"
	KeyNames    = "names"
	KeyPriority = "priority"
	KeyExclude  = "exclude"
)

// CriteriaFromParams builds selection criteria from the resolved parameter
// set. List-valued keys are comma-separated.
func CriteriaFromParams(set *params.Set) (Criteria, error) {
	criteria := Criteria{
		Category: set.Get(KeyCategory),
		Area:     set.Get(KeyArea),
		Tags:     splitList(set.Get(KeyTags)),
		Names:    splitList(set.Get(KeyNames)),
		Exclude:  splitList(set.Get(KeyExclude)),
	}

	priority, err := set.GetInt(KeyPriority, -1)
	if err != nil {
		return Criteria{}, err
	}
	if priority > MaxPriority {
		return Criteria{}, params.NewConfigurationError(KeyPriority, "resolver",
			"priority filter out of range")
	}
	criteria.MaxPriority = priority

	return criteria, nil
}

// Filter returns the cases matching the criteria, preserving definition
// order. Exclusions win over every positive selector.
func Filter(cases []Case, criteria Criteria) []Case {
	var selected []Case

	for _, c := range cases {
		if criteria.Category != "" && !strings.EqualFold(c.Category, criteria.Category) {
			continue
		}
		if criteria.Area != "" && !strings.EqualFold(c.Area, criteria.Area) {
			continue
		}
		if len(criteria.Tags) > 0 && !hasAnyTag(c, criteria.Tags) {
			continue
		}
		if len(criteria.Names) > 0 && !containsFold(criteria.Names, c.Name) {
			continue
		}
		if criteria.MaxPriority >= 0 && c.Priority > criteria.MaxPriority {
			continue
		}
		if containsFold(criteria.Exclude, c.Name) {
			logging.Debug("TestDef", "Case %s excluded by exclusion list", c.Name)
			continue
		}
		selected = append(selected, c)
	}

	logging.Debug("TestDef", "Selected %d of %d case definitions", len(selected), len(cases))
	return selected
}

func hasAnyTag(c Case, tags []string) bool {
	for _, want := range tags {
		for _, have := range c.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func containsFold(list []string, item string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, item) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
