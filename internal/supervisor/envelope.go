package supervisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultEnvelope is the machine-readable record the agent process must emit
// on stdout when it succeeds.
type ResultEnvelope struct {
	Result      string `json:"result"`
	SessionCode string `json:"sessionCode,omitempty"`
}

// ParseEnvelope strips terminal escapes from raw agent output and decodes the
// result envelope. Agents commonly log before emitting the envelope, so if
// the whole output is not a single JSON document the last non-empty line is
// tried. Any other shape is a parse failure.
func ParseEnvelope(raw string) (*ResultEnvelope, error) {
	clean := strings.TrimSpace(StripANSI(raw))
	if clean == "" {
		return nil, fmt.Errorf("agent produced no output")
	}

	if env, err := decodeEnvelope(clean); err == nil {
		return env, nil
	}
	if line := lastLine(clean); line != clean {
		if env, err := decodeEnvelope(line); err == nil {
			return env, nil
		}
	}
	return nil, fmt.Errorf("agent output is not a result envelope")
}

func decodeEnvelope(s string) (*ResultEnvelope, error) {
	// Decode through a raw map first so a JSON document without a result
	// field is rejected rather than read as an empty result.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["result"]; !ok {
		return nil, fmt.Errorf("missing result field")
	}
	var env ResultEnvelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, err
	}
	return &env, nil
}
