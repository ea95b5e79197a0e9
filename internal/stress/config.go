package stress

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// LoadScenario reads a scenario from a HuJSON file (JSON with comments and
// trailing commas permitted).
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var sc Scenario

	if err := json.Unmarshal(standardized, &sc); err != nil {
		return Scenario{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sc.withDefaults().validate(); err != nil {
		return Scenario{}, err
	}

	return sc, nil
}
