package apps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	registry := NewBuilder().
		Register(Descriptor{Code: "skill_assessment", Name: "Skill Assessment"}).
		Register(Descriptor{Code: "timesheet", Name: "Timesheet"}).
		Build()

	d, ok := registry.Get("skill_assessment")
	require.True(t, ok)
	require.Equal(t, "Skill Assessment", d.Name)

	_, ok = registry.Get("missing")
	require.False(t, ok)
}

func TestRegistryOrder(t *testing.T) {
	registry := NewBuilder().
		Register(Descriptor{Code: "c", Name: "C"}).
		Register(Descriptor{Code: "a", Name: "A"}).
		Register(Descriptor{Code: "b", Name: "B"}).
		Build()

	all := registry.All()
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].Code)
	require.Equal(t, "a", all[1].Code)
	require.Equal(t, "b", all[2].Code)
}

func TestRegistryDuplicateLastWriteWins(t *testing.T) {
	registry := NewBuilder().
		Register(Descriptor{Code: "skill_assessment", Name: "First"}).
		Register(Descriptor{Code: "timesheet", Name: "Timesheet"}).
		Register(Descriptor{Code: "skill_assessment", Name: "Second"}).
		Build()

	d, ok := registry.Get("skill_assessment")
	require.True(t, ok)
	require.Equal(t, "Second", d.Name)

	// The replacement keeps the original registration slot.
	all := registry.All()
	require.Len(t, all, 2)
	require.Equal(t, "skill_assessment", all[0].Code)
	require.Equal(t, "Second", all[0].Name)
}

func TestRegistryImmutableAfterBuild(t *testing.T) {
	builder := NewBuilder().
		Register(Descriptor{Code: "skill_assessment", Name: "Skill Assessment"})
	registry := builder.Build()

	// Later builder use must not leak into the built registry.
	builder.Register(Descriptor{Code: "late", Name: "Late"})

	_, ok := registry.Get("late")
	require.False(t, ok)
	require.Len(t, registry.All(), 1)
}

func TestRegistryAvailable(t *testing.T) {
	registry := NewBuilder().
		Register(Descriptor{Code: "skill_assessment", Name: "Skill Assessment"}).
		Build()

	available := registry.Available(nil)
	require.Len(t, available, 1)
}
