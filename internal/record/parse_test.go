package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Membership(t *testing.T) {
	parsed := Parse(testRecord([][]string{
		{"member", "pk1", "Alice"},
		{"member", "pk2", "Bob", "global"},
		{"member", "pk3", "Carol", "local"},
		{"member", "pk4"},       // missing display name
		{"member", " ", "Dave"}, // blank identity
	}))

	require.Len(t, parsed.Memberships, 3)
	require.Equal(t, MembershipTag{Identity: "pk1", DisplayName: "Alice"}, parsed.Memberships[0])
	require.True(t, parsed.Memberships[1].Global)
	require.False(t, parsed.Memberships[2].Global)
}

func TestParse_Capabilities(t *testing.T) {
	parsed := Parse(testRecord([][]string{
		{"model", "gpt-4", "Alice", "Bob"},
		{"tool", "search", "Alice"},
		{"model", "claude"}, // no targets
		{"tool", "", "Alice"},
	}))

	require.Len(t, parsed.Capabilities, 2)
	require.Equal(t, CapabilityTag{Family: "model", Value: "gpt-4", Targets: []string{"Alice", "Bob"}}, parsed.Capabilities[0])
	require.Equal(t, CapabilityTag{Family: "tool", Value: "search", Targets: []string{"Alice"}}, parsed.Capabilities[1])
}

func TestParse_ReferenceAndSuggestions(t *testing.T) {
	parsed := Parse(testRecord([][]string{
		{"ref", "root-1"},
		{"ref", "  "},
		{"suggestion", "b", "a"},
		{"suggestion"},
		{"agent"},
	}))

	require.Len(t, parsed.References, 1)
	require.Equal(t, "root-1", parsed.References[0].Target)
	require.Len(t, parsed.Suggestions, 1)
	require.Equal(t, []string{"b", "a"}, parsed.Suggestions[0].Values)
	require.True(t, parsed.AgentMarker)
}

func TestParse_UnrecognizedShapesSkipped(t *testing.T) {
	parsed := Parse(testRecord([][]string{
		{"unknown", "x"},
		{},
		{"title", "a thread"},
	}))

	require.Empty(t, parsed.Memberships)
	require.Empty(t, parsed.Capabilities)
	require.Empty(t, parsed.References)
	require.Empty(t, parsed.Suggestions)
	require.False(t, parsed.AgentMarker)
}
