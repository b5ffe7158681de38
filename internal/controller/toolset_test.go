package controller

import "testing"

func TestParseToolSetDefaultsToAll(t *testing.T) {
	set := ParseToolSet("")

	if !set.Enabled(ToolSetEvolution) {
		t.Fatalf("expected empty --tools to enable everything via 'all'")
	}
}

func TestParseToolSetSubsetOnlyEnablesNamed(t *testing.T) {
	set := ParseToolSet("tech-stack, code-quality")

	if !set.Enabled(ToolSetTechStack) || !set.Enabled(ToolSetCodeQuality) {
		t.Fatalf("expected both selected tools enabled")
	}

	if set.Enabled(ToolSetVulnerability) || set.Enabled(ToolSetEvolution) {
		t.Fatalf("expected unselected tools to stay disabled")
	}
}

func TestParseToolSetIsCaseInsensitive(t *testing.T) {
	set := ParseToolSet("ALL")

	if !set.Enabled(ToolSetVulnerability) {
		t.Fatalf("expected 'ALL' to normalize to the all-tools selection")
	}
}
