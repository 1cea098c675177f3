package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() *AgentProfile {
	return &AgentProfile{
		ID:     "agent-a",
		Type:   "worker",
		Status: StatusOnline,
		Capabilities: []AgentCapability{
			{ID: "c1", Name: "translate", Category: "language", Cost: 20, Reliability: 0.9},
		},
	}
}

func TestAgentProfile_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validProfile().Validate())

	p := validProfile()
	p.ID = ""
	assert.Equal(t, ErrValidation, GetErrorCode(p.Validate()))

	p = validProfile()
	p.Status = "sleeping"
	assert.Equal(t, ErrValidation, GetErrorCode(p.Validate()))

	p = validProfile()
	p.Capabilities[0].Reliability = 1.5
	assert.Equal(t, ErrValidation, GetErrorCode(p.Validate()))

	p = validProfile()
	p.Capabilities[0].Cost = -1
	assert.Equal(t, ErrValidation, GetErrorCode(p.Validate()))
}

func TestAgentProfile_Clone(t *testing.T) {
	t.Parallel()

	p := validProfile()
	p.Metadata.Performance = map[string]float64{"success_rate": 0.95}

	clone := p.Clone()
	clone.Capabilities[0].Name = "rewritten"
	clone.Metadata.Performance["success_rate"] = 0.1

	assert.Equal(t, "translate", p.Capabilities[0].Name)
	assert.Equal(t, 0.95, p.Metadata.Performance["success_rate"])
}

func TestAgentProfile_CapabilityLookup(t *testing.T) {
	t.Parallel()

	p := validProfile()
	c, ok := p.Capability("translate")
	require.True(t, ok)
	assert.Equal(t, "language", c.Category)

	assert.True(t, p.HasCapability("translate"))
	assert.False(t, p.HasCapability("summarize"))
}
