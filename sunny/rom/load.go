// Package rom reads ROM images from disk, unpacking the common archive formats.
package rom

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/pkg/errors"
)

// ErrEmptyArchive is returned for archives that hold no regular file.
var ErrEmptyArchive = errors.New("archive contains no files")

// romExtensions are preferred when picking a file out of an archive.
var romExtensions = map[string]bool{".gb": true, ".gbc": true, ".sgb": true, ".bin": true}

// IsKnownExtension reports whether ext names a ROM or a supported archive.
func IsKnownExtension(ext string) bool {
	ext = strings.ToLower(ext)
	switch ext {
	case ".gz", ".zip", ".7z":
		return true
	}
	return romExtensions[ext]
}

// Load reads the file at path. Zip, gzip and 7z files are unpacked and the
// first ROM inside is returned, anything else is returned as is.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading ROM")
	}
	return Decode(filepath.Base(path), data)
}

// Decode unpacks data according to the extension of name.
func Decode(name string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		return decodeGzip(data)
	case ".zip":
		return decodeZip(data)
	case ".7z":
		return decode7z(data)
	}
	return data, nil
}

func decodeGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening gzip stream")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing gzip stream")
	}
	return out, nil
}

// archiveFile is the part of zip.File and sevenzip.File used to pick and read an entry.
type archiveFile interface {
	Open() (io.ReadCloser, error)
	FileInfo() os.FileInfo
}

func decodeZip(data []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening zip archive")
	}
	files := make([]archiveFile, 0, len(r.File))
	for _, f := range r.File {
		files = append(files, f)
	}
	return readFirstROM(files, func(i int) string { return r.File[i].Name })
}

func decode7z(data []byte) ([]byte, error) {
	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening 7z archive")
	}
	files := make([]archiveFile, 0, len(r.File))
	for _, f := range r.File {
		files = append(files, f)
	}
	return readFirstROM(files, func(i int) string { return r.File[i].Name })
}

// readFirstROM returns the first entry with a ROM extension, or the first
// regular file when none has one.
func readFirstROM(files []archiveFile, name func(int) string) ([]byte, error) {
	pick := -1
	for i, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if romExtensions[strings.ToLower(filepath.Ext(name(i)))] {
			pick = i
			break
		}
		if pick < 0 {
			pick = i
		}
	}
	if pick < 0 {
		return nil, ErrEmptyArchive
	}

	rc, err := files[pick].Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", name(pick))
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "extracting %s", name(pick))
	}
	return out, nil
}
