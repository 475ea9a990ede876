package api

import (
	"strings"
	"testing"
)

func TestFormat_Encode(t *testing.T) {
	v := map[string]any{"name": "sepsis", "nodes": 3}

	var sb strings.Builder
	if err := FormatJSON.Encode(&sb, v); err != nil {
		t.Fatalf("json encode: %v", err)
	}
	if !strings.Contains(sb.String(), `"name": "sepsis"`) {
		t.Errorf("json output = %q", sb.String())
	}

	sb.Reset()
	if err := FormatYAML.Encode(&sb, v); err != nil {
		t.Fatalf("yaml encode: %v", err)
	}
	if !strings.Contains(sb.String(), "name: sepsis") {
		t.Errorf("yaml output = %q", sb.String())
	}

	if err := Format("toml").Encode(&sb, v); err == nil {
		t.Error("unknown format should error")
	}
}

func TestSetOutputFormat_FallsBackToYAML(t *testing.T) {
	t.Cleanup(func() { current = FormatYAML })

	SetOutputFormat("json")
	if current != FormatJSON {
		t.Errorf("current = %q, want json", current)
	}
	SetOutputFormat("xml")
	if current != FormatYAML {
		t.Errorf("current = %q, want yaml fallback", current)
	}
}
