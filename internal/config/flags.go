package config

import (
	"flag"
	"strings"
)

// Flags holds the bake command line. Other subcommands define their own sets.
var Flags = flag.NewFlagSet("bake", flag.ContinueOnError)

var (
	flagConfig         = Flags.String("config", "", "Path to config file")
	flagDebug          = Flags.Bool("debug", false, "Enable debug logging")
	flagModel          = Flags.String("model", "", "Model to bake (.rsm or .yaml fixture)")
	flagGRF            = Flags.String("grf", "", "Comma separated GRF archives the model is read from")
	flagOut            = Flags.String("out", "", "Output directory")
	flagName           = Flags.String("name", "", "Base filename for the textures")
	flagFirst          = Flags.Int("first", -1, "First frame (default: source range)")
	flagLast           = Flags.Int("last", -1, "Last frame (default: source range)")
	flagFPS            = Flags.String("fps", "", "Frame rate preset or number")
	flagMarginPosition = Flags.Float64("margin-position", -1, "Margin added to the position range")
	flagMarginNormal   = Flags.Float64("margin-normal", -1, "Margin added to the normal range")
	flagSinglePass     = Flags.Bool("single-pass", false, "Sample every frame once instead of twice")
	flagPreview        = Flags.Bool("preview", false, "Also write TIFF previews")
	flagSelect         = Flags.String("select", "", "Comma separated mesh names to export")
)

// ParseFlags parses the bake command line.
func ParseFlags(args []string) error {
	return Flags.Parse(args)
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Source.Model = *flagModel
	}
	if *flagGRF != "" {
		cfg.Source.GRF = splitNames(*flagGRF)
	}
	if *flagOut != "" {
		cfg.Output.Directory = *flagOut
	}
	if *flagName != "" {
		cfg.Output.BaseFilename = *flagName
	}
	if *flagFirst >= 0 {
		first := *flagFirst
		cfg.Export.FirstFrame = &first
	}
	if *flagLast >= 0 {
		last := *flagLast
		cfg.Export.LastFrame = &last
	}
	if *flagFPS != "" {
		cfg.Export.FrameRate = *flagFPS
	}
	if *flagMarginPosition >= 0 {
		cfg.Export.MarginPosition = float32(*flagMarginPosition)
	}
	if *flagMarginNormal >= 0 {
		cfg.Export.MarginNormal = float32(*flagMarginNormal)
	}
	if *flagSinglePass {
		cfg.Export.SinglePass = true
	}
	if *flagPreview {
		cfg.Output.Preview = true
	}
	if *flagSelect != "" {
		cfg.Export.Selection = splitNames(*flagSelect)
	}
}

func splitNames(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
