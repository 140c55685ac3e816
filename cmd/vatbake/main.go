// vatbake bakes animated Ragnarok Online models into Vertex Animation
// Textures and inspects the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vat/internal/config"
	"github.com/Faultbox/midgard-vat/internal/logger"
	"github.com/Faultbox/midgard-vat/internal/source"
	"github.com/Faultbox/midgard-vat/internal/vat"
	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/grf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "bake":
		err = cmdBake(args)
	case "config":
		err = cmdConfig(args)
	case "inspect":
		err = cmdInspect(args)
	case "nodes":
		err = cmdNodes(args)
	case "list", "ls":
		err = cmdList(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vatbake - Vertex Animation Texture baker

Usage:
  vatbake <command> [options]

Commands:
  bake [flags]                        Bake position and normal textures
  config [-save|-o file] [bake flags] Print the effective configuration
  inspect <file.exr>                  Show size and channel ranges of a texture
  nodes [-grf file.grf] <model>       List the meshes a model exports
  list <file.grf> [pattern]           List models in an archive

Examples:
  vatbake bake -model data/model/windmill.rsm -grf data.grf -fps ntsc
  vatbake bake -model flag.yaml -out dist -name flag -select cloth
  vatbake inspect vat/output_position.exr
  vatbake list data.grf "*wind*"

Run "vatbake bake -h" for all bake flags.`)
}

// cmdConfig prints the configuration a bake with the same flags would use,
// or writes it with -save (per-user config file) or -o.
func cmdConfig(args []string) error {
	var save bool
	var out string
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-save", "--save":
			save = true
		case "-o":
			if i+1 >= len(args) {
				return errors.New("-o needs a file")
			}
			i++
			out = args[i]
		default:
			rest = append(rest, args[i])
		}
	}

	if err := config.ParseFlags(rest); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch {
	case out != "":
		if err := cfg.SaveTo(out); err != nil {
			return err
		}
		fmt.Println(out)
	case save:
		path, err := cfg.Save()
		if err != nil {
			return err
		}
		fmt.Println(path)
	default:
		return cfg.Encode(os.Stdout)
	}
	return nil
}

func cmdBake(args []string) error {
	if err := config.ParseFlags(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Source.Model == "" {
		return errors.New("no model to bake: set source.model or pass -model")
	}

	fps, err := vat.ParseFrameRate(cfg.Export.FrameRate)
	if err != nil {
		return err
	}
	src, err := source.Open(cfg.Source.Model, cfg.Source.GRF, fps)
	if err != nil {
		return err
	}

	opts := vat.Options{
		Margins: vat.Margins{
			Position: cfg.Export.MarginPosition,
			Normal:   cfg.Export.MarginNormal,
		},
		SinglePass: cfg.Export.SinglePass,
		Metadata:   cfg.Output.Metadata,
		Preview:    cfg.Output.Preview,
	}
	if _, ok := src.(*source.RSM); ok {
		opts.FrameRate = fps
	}

	progress := newProgress(os.Stderr, "baking")
	opts.Progress = progress.Report

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := vat.NewBaker(src, opts).Run(ctx, vat.Request{
		Selection:    cfg.Selection(),
		Frames:       cfg.FrameRange(src.FrameRange()),
		OutputDir:    cfg.Output.Directory,
		BaseFilename: cfg.Output.BaseFilename,
	})
	progress.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("Texture: %d x %d (%d vertices, frames %d-%d)\n",
		res.Width, res.Height, res.Width, res.Frames.First, res.Frames.Last)
	fmt.Println(res.PositionPath)
	fmt.Println(res.NormalPath)
	if res.MetadataPath != "" {
		fmt.Println(res.MetadataPath)
	}
	for _, p := range res.PreviewPaths {
		fmt.Println(p)
	}
	return nil
}

func cmdInspect(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: vatbake inspect <file.exr>")
	}

	img, err := formats.ParseEXRFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:     %s\n", args[0])
	fmt.Printf("Size:     %d x %d\n", img.Width, img.Height)
	fmt.Printf("Channels: %d\n", len(img.Channels))
	for _, ch := range img.Channels {
		lo, hi := channelRange(ch.Data)
		fmt.Printf("  %-2s min %-12g max %g\n", ch.Name, lo, hi)
	}
	return nil
}

func channelRange(data []float32) (lo, hi float32) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

func cmdNodes(args []string) error {
	fs := flag.NewFlagSet("nodes", flag.ContinueOnError)
	grfPaths := fs.String("grf", "", "Comma separated GRF archives the model is read from")
	fpsName := fs.String("fps", "film", "Frame rate preset or number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: vatbake nodes [-grf file.grf] <model.rsm|fixture.yaml>")
	}

	fps, err := vat.ParseFrameRate(*fpsName)
	if err != nil {
		return err
	}
	src, err := source.Open(fs.Arg(0), splitList(*grfPaths), fps)
	if err != nil {
		return err
	}

	fr := src.FrameRange()
	fmt.Printf("Frames: %d-%d (%d)\n", fr.First, fr.Last, fr.Count())
	total := 0
	for i, m := range src.Meshes() {
		fmt.Printf("  %3d  %-40s %6d vertices\n", i, m.Name, m.VertexCount)
		total += m.VertexCount
	}
	fmt.Printf("Total: %d vertices\n", total)
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	all := fs.Bool("all", false, "List every file, not just models")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: vatbake list <file.grf> [pattern]")
	}

	archive, err := grf.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	ext := ".rsm"
	if *all {
		ext = ""
	}
	pattern := ""
	if fs.NArg() > 1 {
		pattern = fs.Arg(1)
	}

	files := archive.Find(ext, pattern)
	if *limit > 0 && len(files) > *limit {
		files = files[:*limit]
	}
	for _, f := range files {
		fmt.Println(f)
	}
	logger.Debug("listed archive", zap.String("archive", fs.Arg(0)), zap.Int("files", len(files)))
	fmt.Fprintf(os.Stderr, "\n%d file(s)%s\n", len(files), matchSuffix(pattern))
	return nil
}

func matchSuffix(pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		return ""
	}
	return fmt.Sprintf(" matching %q", pattern)
}
