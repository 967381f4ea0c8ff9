// Package config handles exporter configuration loading and management.
package config

// Config holds all exporter settings.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Frames  FrameConfig   `yaml:"frames"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig holds scene input settings.
type InputConfig struct {
	Scene string `yaml:"scene"` // path to the scene YAML file
}

// OutputConfig holds output document settings.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // "usda" or "glb"
}

// FrameConfig holds the export time range.
type FrameConfig struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Step  float64 `yaml:"step"`
}

// Count returns the number of time samples in the range.
func (f FrameConfig) Count() int {
	if f.Step <= 0 || f.End < f.Start {
		return 0
	}
	return int((f.End-f.Start)/f.Step) + 1
}

// ExportConfig holds geometry export settings.
type ExportConfig struct {
	Triangulate bool `yaml:"triangulate"`
	Creases     bool `yaml:"creases"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Scene: "scene.yaml",
		},
		Output: OutputConfig{
			Path:   "out.usda",
			Format: "usda",
		},
		Frames: FrameConfig{
			Start: 1,
			End:   1,
			Step:  1,
		},
		Export: ExportConfig{
			Triangulate: false,
			Creases:     true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
