package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/sunny-emu/sunny/sunny"
	"github.com/sunny-emu/sunny/sunny/render"
)

type snapshotConfig struct {
	interval int
	dir      string
	format   string
	scale    int
	romName  string
}

func newSnapshotConfig(c *cli.Context, romName string) (snapshotConfig, error) {
	cfg := snapshotConfig{
		interval: c.Int("snapshot-interval"),
		dir:      c.String("snapshot-dir"),
		format:   c.String("snapshot-format"),
		scale:    c.Int("snapshot-scale"),
		romName:  romName,
	}
	if cfg.interval <= 0 {
		return cfg, nil
	}

	if cfg.format != "png" && cfg.format != "txt" {
		return cfg, errors.Errorf("unknown snapshot format %q", cfg.format)
	}

	if cfg.dir == "" {
		dir, err := os.MkdirTemp("", "sunny-snapshots-*")
		if err != nil {
			return cfg, errors.Wrap(err, "failed to create snapshot directory")
		}
		cfg.dir = dir
	} else if err := os.MkdirAll(cfg.dir, 0755); err != nil {
		return cfg, errors.Wrap(err, "failed to create snapshot directory")
	}

	return cfg, nil
}

func (s snapshotConfig) maybeSave(emu *sunny.DMG, frame int) {
	if s.interval <= 0 || frame%s.interval != 0 {
		return
	}

	path := render.SnapshotPath(s.dir, s.romName, uint64(frame), s.format)
	var err error
	if s.format == "txt" {
		err = render.SaveText(emu.Framebuffer(), path, emu.Frames(), emu.Instructions())
	} else {
		err = render.SavePNG(emu.Framebuffer(), path, s.scale)
	}

	if err != nil {
		slog.Error("Failed to save snapshot", "frame", frame, "path", path, "error", err)
		return
	}
	slog.Info("Saved frame snapshot", "frame", frame, "path", path)
}
