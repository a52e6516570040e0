package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "hello", StripANSI("\x1b[32mhello\x1b[0m"))
	assert.Equal(t, "plain text", StripANSI("plain text"))
	assert.Equal(t, "cursor", StripANSI("\x1b[2J\x1b[1;1Hcursor"))
	assert.Equal(t, "", StripANSI("\x1b[0m"))
}

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope(`{"result":"done","sessionCode":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, "done", env.Result)
	assert.Equal(t, "abc", env.SessionCode)
}

func TestParseEnvelopeWithLeadingLogs(t *testing.T) {
	raw := "booting agent...\nloaded 3 tools\n{\"result\":\"ok\"}\n"
	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", env.Result)
	assert.Empty(t, env.SessionCode)
}

func TestParseEnvelopeStripsANSI(t *testing.T) {
	env, err := ParseEnvelope("\x1b[32m{\"result\":\"colored\"}\x1b[0m")
	require.NoError(t, err)
	assert.Equal(t, "colored", env.Result)
}

func TestParseEnvelopeRejectsMalformedOutput(t *testing.T) {
	cases := []string{
		"",
		"just some prose",
		`["not","an","object"]`,
		`{"sessionCode":"abc"}`, // missing result field
		"log line\nanother log line",
	}
	for _, raw := range cases {
		_, err := ParseEnvelope(raw)
		assert.Error(t, err, "input %q should not parse", raw)
	}
}
