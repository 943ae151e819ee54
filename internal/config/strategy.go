package config

import (
	"fmt"
	"sort"
)

// knownStrategies lists every key decision_making may carry, independent of
// which ones are actually populated — used to report available options.
var knownStrategies = []string{"CBAA", "CBBA", "GRAPE", "FirstClaimGreedy"}

// ErrUnknownStrategy is returned by ResolveStrategy when name isn't present
// in the config's decision_making map.
type ErrUnknownStrategy struct {
	Name      string
	Available []string
}

func (e *ErrUnknownStrategy) Error() string {
	return fmt.Sprintf("config: unrecognized strategy %q, options: %v", e.Name, e.Available)
}

// ResolveStrategy returns the named strategy's parameters from the
// decision_making map. "CBAA" resolves to the same CBBA parameters — it is
// CBBA's historical single-assignment name and is not modeled separately.
func (c *Config) ResolveStrategy(name string) (any, error) {
	switch name {
	case "FirstClaimGreedy":
		if c.DecisionMaking.FirstClaimGreedy == nil {
			return nil, unknownStrategy(name)
		}
		return c.DecisionMaking.FirstClaimGreedy, nil
	case "GRAPE":
		if c.DecisionMaking.GRAPE == nil {
			return nil, unknownStrategy(name)
		}
		return c.DecisionMaking.GRAPE, nil
	case "CBBA", "CBAA":
		if c.DecisionMaking.CBBA == nil {
			return nil, unknownStrategy(name)
		}
		return c.DecisionMaking.CBBA, nil
	default:
		return nil, unknownStrategy(name)
	}
}

func unknownStrategy(name string) error {
	avail := append([]string(nil), knownStrategies...)
	sort.Strings(avail)
	return &ErrUnknownStrategy{Name: name, Available: avail}
}
