package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/sunny-emu/sunny/sunny"
)

// savePathFor puts the save next to the ROM, archives included: game.zip
// saves to game.sav.
func savePathFor(romPath string) string {
	return filepath.Join(filepath.Dir(romPath), romName(romPath)+".sav")
}

func loadSave(emu *sunny.DMG, path string) error {
	cart := emu.Cartridge()
	if !cart.HasBattery() {
		slog.Debug("Cartridge has no battery, not loading save")
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading save")
	}

	if err := cart.LoadRAM(data); err != nil {
		return errors.Wrapf(err, "loading save %s", path)
	}
	slog.Info("Save loaded", "path", path, "bytes", len(data))
	return nil
}

func storeSave(emu *sunny.DMG, path string) error {
	ram := emu.Cartridge().SaveRAM()
	if ram == nil {
		return nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, ram, 0644); err != nil {
		return errors.Wrap(err, "writing save")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "writing save")
	}
	slog.Info("Save stored", "path", path, "bytes", len(ram))
	return nil
}
