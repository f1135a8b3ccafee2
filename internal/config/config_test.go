package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

const samplePatch = `
version: v1
storage:
  dir: /tmp/presets
nodes:
  - id: cutoff
    kind: slider
    state: {value: 0.25}
  - id: steps
    kind: number
  - id: go
    kind: button
presets:
  - id: p1
    exclude: [go]
    props:
      bubble_size: 12
`

func writePatch(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoader_DefaultsApplied(t *testing.T) {
	l, err := NewLoader(writePatch(t, samplePatch))
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	cfg := l.Config()
	if cfg.Host.QueueDepth != 1024 || cfg.Host.OpTimeoutMs != 2000 || cfg.Host.EventLog != 256 {
		t.Errorf("host defaults not applied: %+v", cfg.Host)
	}
	p := cfg.Presets[0].Props
	if p.BubbleSize != 12 {
		t.Errorf("explicit bubble_size lost: %d", p.BubbleSize)
	}
	if p.FontFamily != "Lato" || p.FontSize != 11 || p.FontFace != "regular" {
		t.Errorf("prop defaults not applied: %+v", p)
	}
	if got := cfg.Nodes[0].State["value"]; got != 0.25 {
		t.Errorf("node state: got %v", got)
	}
	if err := Validate(cfg, widget.Default()); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestLoader_ReloadNotifies(t *testing.T) {
	path := writePatch(t, samplePatch)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	var seen []*PatchConfig
	l.OnChange(func(c *PatchConfig) { seen = append(seen, c) })

	updated := strings.Replace(samplePatch, "version: v1", "version: v2", 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := l.Reload()
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if cfg.Version != "v2" || l.Config().Version != "v2" {
		t.Errorf("expected v2, got %s", cfg.Version)
	}
	if len(seen) != 1 || seen[0] != cfg {
		t.Errorf("expected one callback with the new config, got %d", len(seen))
	}
}

func TestLoader_ReloadKeepsOldOnError(t *testing.T) {
	path := writePatch(t, samplePatch)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	if err := os.WriteFile(path, []byte("version: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := l.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if l.Config().Version != "v1" {
		t.Errorf("old config replaced after failed reload")
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		cfg  PatchConfig
		want string
	}{
		{
			name: "missing version",
			cfg:  PatchConfig{},
			want: "version is required",
		},
		{
			name: "duplicate id across nodes and presets",
			cfg: PatchConfig{
				Version: "v1",
				Nodes:   []NodeDef{{ID: "x", Kind: "number"}},
				Presets: []PresetDef{{ID: "x"}},
			},
			want: `duplicate id "x"`,
		},
		{
			name: "unknown kind",
			cfg: PatchConfig{
				Version: "v1",
				Nodes:   []NodeDef{{ID: "v", Kind: "video"}},
			},
			want: `unknown widget kind "video"`,
		},
		{
			name: "state rejected by kind",
			cfg: PatchConfig{
				Version: "v1",
				Nodes:   []NodeDef{{ID: "s", Kind: "slider", State: map[string]interface{}{"value": 4}}},
			},
			want: "out of range",
		},
		{
			name: "unknown include",
			cfg: PatchConfig{
				Version: "v1",
				Presets: []PresetDef{{ID: "p", Include: []string{"ghost"}}},
			},
			want: `preset p.include[0]: unknown node "ghost"`,
		},
		{
			name: "bad props",
			cfg: PatchConfig{
				Version: "v1",
				Presets: []PresetDef{{ID: "p", Exclude: nil}},
			},
			want: "bubble_size must be positive",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.cfg, widget.Default())
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestLoader_WatchSeesRenameReplace(t *testing.T) {
	path := writePatch(t, samplePatch)
	l, err := NewLoader(path)
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	changed := make(chan *PatchConfig, 4)
	l.OnChange(func(c *PatchConfig) { changed <- c })
	stop, err := l.Watch()
	if err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	defer stop()

	tmp := path + ".tmp"
	updated := strings.Replace(samplePatch, "version: v1", "version: v2", 1)
	if err := os.WriteFile(tmp, []byte(updated), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	select {
	case c := <-changed:
		if c.Version != "v2" {
			t.Errorf("expected v2, got %s", c.Version)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after rename")
	}
}
