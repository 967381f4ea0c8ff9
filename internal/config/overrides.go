package config

// Overrides carries CLI flag values that take priority over file settings.
// Zero values mean "not set" and leave the loaded config untouched, except
// for the booleans, which carry their own set-flags.
type Overrides struct {
	Scene  string
	Output string
	Format string
	Start  *float64
	End    *float64
	Step   *float64
	Debug  bool

	Triangulate    bool
	TriangulateSet bool
}

// Apply applies CLI overrides to the config.
func (c *Config) Apply(o Overrides) {
	if o.Scene != "" {
		c.Input.Scene = o.Scene
	}
	if o.Output != "" {
		c.Output.Path = o.Output
	}
	if o.Format != "" {
		c.Output.Format = o.Format
	}
	if o.Start != nil {
		c.Frames.Start = *o.Start
	}
	if o.End != nil {
		c.Frames.End = *o.End
	}
	if o.Step != nil {
		c.Frames.Step = *o.Step
	}
	if o.TriangulateSet {
		c.Export.Triangulate = o.Triangulate
	}
	if o.Debug {
		c.Logging.Level = "debug"
	}
}
