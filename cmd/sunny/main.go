package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/sunny-emu/sunny/sunny"
	"github.com/sunny-emu/sunny/sunny/render"
	"github.com/sunny-emu/sunny/sunny/rom"
	"github.com/sunny-emu/sunny/sunny/stream"
)

func main() {
	app := cli.NewApp()
	app.Name = "Sunny"
	app.Description = "A cycle accurate DMG Game Boy emulator"
	app.Usage = "sunny [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file, may be a .zip, .gz or .7z archive",
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Path to a 256 byte DMG boot ROM to run before the cartridge",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without any display",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.StringFlag{
			Name:  "snapshot-format",
			Usage: "Snapshot format, png or txt",
			Value: "png",
		},
		cli.IntFlag{
			Name:  "snapshot-scale",
			Usage: "Upscaling factor of png snapshots",
			Value: 2,
		},
		cli.StringFlag{
			Name:  "serve",
			Usage: "Stream frames over websockets on this address (e.g. :8090) instead of the terminal",
		},
		cli.BoolFlag{
			Name:  "save",
			Usage: "Load and store battery backed RAM next to the ROM as a .sav file",
		},
		cli.BoolFlag{
			Name:  "strict-header",
			Usage: "Refuse ROMs whose header checksum does not match",
		},
		cli.BoolFlag{
			Name:  "trace",
			Usage: "Log every executed instruction (implies --debug)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) {
	level := slog.LevelInfo
	if c.Bool("debug") || c.Bool("trace") {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runEmulator(c *cli.Context) error {
	setupLogging(c)

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() == 0 {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
		romPath = c.Args().Get(0)
	}

	var opts []sunny.Option
	if path := c.String("boot-rom"); path != "" {
		boot, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "reading boot ROM")
		}
		opts = append(opts, sunny.WithBootROM(boot))
	}
	if c.Bool("strict-header") {
		opts = append(opts, sunny.WithStrictHeader())
	}
	if c.Bool("trace") {
		opts = append(opts, sunny.WithTrace())
	}
	if c.Bool("headless") {
		opts = append(opts, sunny.WithSerialWriter(os.Stdout))
	}

	emu, err := sunny.NewWithFile(romPath, opts...)
	if err != nil {
		return err
	}

	if c.Bool("save") {
		savePath := savePathFor(romPath)
		if err := loadSave(emu, savePath); err != nil {
			return err
		}
		defer func() {
			if err := storeSave(emu, savePath); err != nil {
				slog.Error("Failed to store save", "path", savePath, "error", err)
			}
		}()
	}

	switch {
	case c.Bool("headless"):
		return runHeadless(c, emu, romPath)
	case c.String("serve") != "":
		return runServer(emu, c.String("serve"))
	}

	renderer, err := render.NewTerminalRenderer(emu)
	if err != nil {
		return err
	}
	return renderer.Run()
}

func romName(path string) string {
	name := filepath.Base(path)
	for ext := filepath.Ext(name); ext != ""; ext = filepath.Ext(name) {
		if !rom.IsKnownExtension(ext) {
			break
		}
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func runHeadless(c *cli.Context, emu *sunny.DMG, romPath string) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	snapshots, err := newSnapshotConfig(c, romName(romPath))
	if err != nil {
		return err
	}

	slog.Info("Running headless mode", "frames", frames, "snapshot_interval", snapshots.interval, "snapshot_dir", snapshots.dir)

	start := time.Now()
	for i := 1; i <= frames; i++ {
		emu.RunOneFrame()
		snapshots.maybeSave(emu, i)

		if i%10 == 0 {
			slog.Debug("Frame progress", "completed", i, "total", frames)
		}
	}

	slog.Info("Headless execution completed",
		"frames", frames,
		"instructions", emu.Instructions(),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"frame_hash", emu.FrameHash())
	return nil
}

func runServer(emu *sunny.DMG, address string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "listening for websocket clients")
	}

	// Serve returns after the emulator stopped running, the deferred save is safe.
	return stream.Serve(ctx, emu, listener, slog.Default())
}
