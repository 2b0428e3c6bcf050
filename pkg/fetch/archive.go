// Copyright 2026 The TSI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/PanterSoft/tsi/pkg/config"
)

// compression identifies the single-stream compressor wrapping an
// archive, independent of whether the payload is a tar, a zip, or a
// single bare file (spec.md §4.4 "Archive format detection").
type compression int

const (
	compNone compression = iota
	compXZ
	compGzip
	compBzip2
)

// container identifies the structural format of the decompressed
// payload.
type container int

const (
	containerTar container = iota
	containerZip
	containerBare
)

type archiveFormat struct {
	comp      compression
	container container
}

// detectBySuffix implements spec.md §4.4 step 1.
func detectBySuffix(name string) (archiveFormat, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return archiveFormat{compXZ, containerTar}, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return archiveFormat{compGzip, containerTar}, true
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz"), strings.HasSuffix(lower, ".tbz2"):
		return archiveFormat{compBzip2, containerTar}, true
	case strings.HasSuffix(lower, ".zip"):
		return archiveFormat{compNone, containerZip}, true
	case strings.HasSuffix(lower, ".tar"):
		return archiveFormat{compNone, containerTar}, true
	case strings.HasSuffix(lower, ".xz"):
		return archiveFormat{compXZ, containerBare}, true
	case strings.HasSuffix(lower, ".gz"):
		return archiveFormat{compGzip, containerBare}, true
	case strings.HasSuffix(lower, ".bz2"):
		return archiveFormat{compBzip2, containerBare}, true
	}
	return archiveFormat{}, false
}

// detectByMagic implements spec.md §4.4 step 2.
func detectByMagic(head []byte) (archiveFormat, bool) {
	switch {
	case len(head) >= 6 && bytes.Equal(head[:6], []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}):
		return archiveFormat{compXZ, containerTar}, true
	case len(head) >= 2 && head[0] == 0x1F && head[1] == 0x8B:
		return archiveFormat{compGzip, containerTar}, true
	case len(head) >= 2 && head[0] == 0x42 && head[1] == 0x5A:
		return archiveFormat{compBzip2, containerTar}, true
	case len(head) >= 265 && bytes.Equal(head[257:262], []byte("ustar")):
		return archiveFormat{compNone, containerTar}, true
	}
	return archiveFormat{}, false
}

func decompressReader(comp compression, r io.Reader) (io.Reader, error) {
	switch comp {
	case compXZ:
		return xz.NewReader(r)
	case compGzip:
		return pgzip.NewReader(r)
	case compBzip2:
		return bzip2.NewReader(r), nil
	default:
		return r, nil
	}
}

// extractArchive implements spec.md §4.4 steps 2-4: detect the format
// (by suffix, then magic bytes, then brute force over
// xz/gzip/bzip2/tar), extract into dest, and consider extraction
// successful only once dest contains at least one non-dotfile.
func extractArchive(archivePath, dest, origName string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	if format, ok := detectBySuffix(origName); ok {
		if err := tryExtract(archivePath, dest, format); err == nil {
			return nil
		}
	}

	head := make([]byte, 265)
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrapf(ErrExtractFailed, "%s: %v", origName, err)
	}
	n, _ := io.ReadFull(f, head)
	f.Close()
	head = head[:n]

	if format, ok := detectByMagic(head); ok {
		if err := tryExtract(archivePath, dest, format); err == nil {
			return nil
		}
	}

	// Brute force: xz, then gzip, then bzip2, then raw tar.
	for _, format := range []archiveFormat{
		{compXZ, containerTar},
		{compGzip, containerTar},
		{compBzip2, containerTar},
		{compNone, containerTar},
	} {
		if err := tryExtract(archivePath, dest, format); err == nil {
			return nil
		}
	}

	return errors.Wrapf(ErrExtractFailed, "%s: no extraction strategy succeeded", origName)
}

func tryExtract(archivePath, dest string, format archiveFormat) error {
	if format.container == containerZip {
		if err := extractZip(archivePath, dest); err != nil {
			return err
		}
		return requireNonEmpty(dest)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompressReader(format.comp, f)
	if err != nil {
		return err
	}

	if format.container == containerBare {
		name := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
		out, err := os.OpenFile(filepath.Join(dest, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer out.Close()
		if _, err := io.Copy(out, r); err != nil {
			return err
		}
		return requireNonEmpty(dest)
	}

	if err := extractTar(r, dest); err != nil {
		return err
	}
	return requireNonEmpty(dest)
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(dest, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
			continue // refuse to extract outside dest
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode&0o777))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.Clean(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// requireNonEmpty implements spec.md §4.4 step 4.
func requireNonEmpty(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			return nil
		}
	}
	return errors.New("destination has no non-dotfile entries")
}

// flattenSingleTopLevelDir implements spec.md §4.4 step 5: if the
// extracted tree has exactly one top-level directory, move its
// contents up one level so the package directory is the source root.
func flattenSingleTopLevelDir(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}

	var visible []os.DirEntry
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			visible = append(visible, e)
		}
	}
	if len(visible) != 1 || !visible[0].IsDir() {
		return nil
	}

	inner := filepath.Join(dest, visible[0].Name())
	innerEntries, err := os.ReadDir(inner)
	if err != nil {
		return err
	}

	for _, e := range innerEntries {
		if err := os.Rename(filepath.Join(inner, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return os.Remove(inner)
}

// fetchArchive implements spec.md §4.4 "Tarball / zip": download to a
// file named after the last URL segment under the cache root, then
// extract and normalize.
func (f *Fetcher) fetchArchive(ctx context.Context, p *config.Package, dest string) error {
	name := filepath.Base(p.Source.URL)
	if name == "" || name == "." || name == "/" {
		name = p.Name + ".download"
	}
	archivePath := filepath.Join(f.CacheRoot, name)

	if err := f.download(ctx, p.Source.URL, archivePath); err != nil {
		return err
	}

	if err := extractArchive(archivePath, dest, name); err != nil {
		return err
	}

	return flattenSingleTopLevelDir(dest)
}
