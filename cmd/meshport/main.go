// meshport is a CLI utility that exports polygonal scene descriptions to
// USD ASCII or glTF documents.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/meshport/internal/config"
	"github.com/Faultbox/meshport/internal/document/gltfdoc"
	"github.com/Faultbox/meshport/internal/document/usda"
	"github.com/Faultbox/meshport/internal/logger"
	"github.com/Faultbox/meshport/pkg/export"
	"github.com/Faultbox/meshport/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export":
		cmdExport(args)
	case "info":
		cmdInfo(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshport - polygonal mesh scene exporter

Usage:
  meshport <command> [options]

Commands:
  export [options] <scene.yaml>   Export a scene to a USD or glTF document
  info <scene.yaml>               Show scene statistics

Export options:
  -config path    Config file (defaults < file < flags)
  -o path         Output document path
  -format name    Output format: usda or glb
  -start n        First frame
  -end n          Last frame
  -step n         Frame step
  -triangulate    Fan-triangulate all polygons
  -debug          Enable debug logging

Examples:
  meshport export -o shot.usda -start 1 -end 24 scene.yaml
  meshport export -format glb -o model.glb scene.yaml
  meshport info scene.yaml`)
}

// document is the sink surface both output backends provide.
type document interface {
	export.Document
	export.MaterialResolver
	Save(path string) error
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config file")
	output := fs.String("o", "", "Output document path")
	format := fs.String("format", "", "Output format: usda or glb")
	start := fs.Float64("start", 0, "First frame")
	end := fs.Float64("end", 0, "Last frame")
	step := fs.Float64("step", 0, "Frame step")
	triangulate := fs.Bool("triangulate", false, "Fan-triangulate all polygons")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	ov := config.Overrides{
		Output: *output,
		Format: *format,
		Debug:  *debug,
	}
	if fs.NArg() > 0 {
		ov.Scene = fs.Arg(0)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			ov.Start = start
		case "end":
			ov.End = end
		case "step":
			ov.Step = step
		case "triangulate":
			ov.Triangulate = *triangulate
			ov.TriangulateSet = true
		}
	})
	cfg.Apply(ov)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := runExport(cfg); err != nil {
		logger.Error("export failed", zap.Error(err))
		os.Exit(1)
	}
}

func runExport(cfg *config.Config) error {
	sc, err := scene.Load(cfg.Input.Scene)
	if err != nil {
		return err
	}

	var doc document
	switch strings.ToLower(cfg.Output.Format) {
	case "usda":
		doc = usda.New()
	case "glb", "gltf":
		doc = gltfdoc.New()
		// glTF only carries triangles.
		cfg.Export.Triangulate = true
	default:
		return fmt.Errorf("unknown output format %q", cfg.Output.Format)
	}

	if cfg.Frames.Count() == 0 {
		return fmt.Errorf("empty frame range: start=%g end=%g step=%g",
			cfg.Frames.Start, cfg.Frames.End, cfg.Frames.Step)
	}

	static := scene.NewStaticProvider(sc)
	static.IgnoreCreases = !cfg.Export.Creases

	var provider export.MeshProvider = static
	if cfg.Export.Triangulate {
		provider = &scene.TriangulateProvider{Source: static}
	}

	session := export.NewSession(doc, provider, doc)
	objects := sc.ExportObjects()

	logger.Info("exporting scene",
		zap.String("scene", cfg.Input.Scene),
		zap.String("output", cfg.Output.Path),
		zap.Int("objects", len(objects)),
		zap.Int("frames", cfg.Frames.Count()))

	bar := progressbar.Default(int64(cfg.Frames.Count()), "exporting")
	for t := cfg.Frames.Start; t <= cfg.Frames.End; t += cfg.Frames.Step {
		for _, obj := range objects {
			if err := session.ExportObject(obj, export.TimeCode(t)); err != nil {
				return err
			}
		}
		bar.Add(1)
	}

	if err := doc.Save(cfg.Output.Path); err != nil {
		return err
	}

	logger.Info("export complete", zap.String("output", cfg.Output.Path))
	return nil
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshport info <scene.yaml>")
		os.Exit(1)
	}

	sc, err := scene.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scene:   %s\n", args[0])
	fmt.Printf("Objects: %d\n", len(sc.Objects))
	fmt.Println()

	for i := range sc.Objects {
		o := &sc.Objects[i]

		creased := 0
		for _, e := range o.Mesh.Edges {
			if e.Crease != 0 {
				creased++
			}
		}

		fmt.Printf("  %-20s verts=%-6d polys=%-6d creased-edges=%-4d slots=%d frames=%d\n",
			o.Name, len(o.Mesh.Points), len(o.Mesh.Polygons), creased,
			len(o.Materials), len(o.Frames))
	}
}
