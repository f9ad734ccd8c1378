package a2s

import (
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2squery/internal/bytestream"
)

// Rule is one server variable from an A2S_RULES response.
type Rule struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// decodeRules reads an A2S_RULES payload, response marker already removed.
// Truncated lists are handled like player lists.
func decodeRules(c *bytestream.Cursor) ([]Rule, error) {
	count, err := c.Uint8()
	if err != nil {
		return nil, invalidData("decode rules", "rule count: %w", err)
	}

	rules := make([]Rule, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := c.String()
		if err != nil {
			log.Warn().Err(err).Int("expected", int(count)).Int("decoded", len(rules)).Msg("Could not read all rules")
			break
		}

		value, err := c.String()
		if err != nil {
			log.Warn().Err(err).Int("expected", int(count)).Int("decoded", len(rules)).Msg("Could not read all rules")
			break
		}

		rules = append(rules, Rule{Name: name, Value: value})
	}

	return rules, nil
}
