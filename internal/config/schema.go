package config

import "github.com/gyaneshwarpardhi/patchpreset/internal/preset"

// PatchConfig is the top-level YAML structure.
type PatchConfig struct {
	Version string      `yaml:"version"`
	Host    HostConf    `yaml:"host"`
	Storage StorageConf `yaml:"storage"`
	Nodes   []NodeDef   `yaml:"nodes"`
	Presets []PresetDef `yaml:"presets"`
}

// HostConf holds tunable host loop settings.
type HostConf struct {
	QueueDepth  int `yaml:"queue_depth"`
	OpTimeoutMs int `yaml:"op_timeout_ms"`
	EventLog    int `yaml:"event_log"` // emissions kept for GET /v1/events
}

// StorageConf locates persisted preset data. An empty Dir disables persistence.
type StorageConf struct {
	Dir string `yaml:"dir"`
}

// NodeDef declares one patch node.
type NodeDef struct {
	ID    string                 `yaml:"id"`
	Kind  string                 `yaml:"kind"`
	State map[string]interface{} `yaml:"state"` // nil = kind's initial state
}

// PresetDef declares one preset engine and the lines on its selection outlets.
type PresetDef struct {
	ID      string       `yaml:"id"`
	Include []string     `yaml:"include"` // empty = every node
	Exclude []string     `yaml:"exclude"`
	Props   preset.Props `yaml:"props"`
}
