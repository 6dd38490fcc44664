package mirror

import (
	"testing"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

func TestDefaultGroupsCoverKnownChannels(t *testing.T) {
	groups := DefaultGroups("telemetry")
	seen := map[schema.DataKey]bool{}
	for _, g := range groups {
		for _, k := range g.Keys {
			seen[k] = true
		}
	}
	if !seen[schema.Speed] || !seen[schema.Paused] || !seen[schema.Yaw] {
		t.Fatal("expected default mirror groups to cover speed, yaw, and paused")
	}
}

func TestDefaultGroupsTopicsPrefixed(t *testing.T) {
	groups := DefaultGroups("telemetry")
	for _, g := range groups {
		if len(g.Topic) < len("telemetry/") || g.Topic[:len("telemetry/")] != "telemetry/" {
			t.Fatalf("expected topic %q to be prefixed with telemetry/", g.Topic)
		}
	}
}
