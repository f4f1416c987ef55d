// Package cloudimage maintains a local cache of downloadable cloud images
// used as the base disk for cloud-init template builds.
package cloudimage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pmxdev/pmx/internal/errors"
)

// Image describes one downloadable cloud image.
type Image struct {
	ID          string
	Name        string
	Version     string
	URL         string
	Filename    string
	Description string
}

// catalog lists the supported images. Ubuntu cloud images ship with
// cloud-init preinstalled, which the create wizard depends on.
var catalog = []Image{
	{
		ID:          "ubuntu-22.04",
		Name:        "Ubuntu 22.04 LTS",
		Version:     "22.04",
		URL:         "https://cloud-images.ubuntu.com/jammy/current/jammy-server-cloudimg-amd64.img",
		Filename:    "jammy-server-cloudimg-amd64.img",
		Description: "Ubuntu 22.04 LTS (Jammy Jellyfish)",
	},
	{
		ID:          "ubuntu-24.04",
		Name:        "Ubuntu 24.04 LTS",
		Version:     "24.04",
		URL:         "https://cloud-images.ubuntu.com/noble/current/noble-server-cloudimg-amd64.img",
		Filename:    "noble-server-cloudimg-amd64.img",
		Description: "Ubuntu 24.04 LTS (Noble Numbat)",
	},
}

// Catalog returns the supported images in a stable order.
func Catalog() []Image {
	out := make([]Image, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds an image by its catalog ID.
func Lookup(id string) (Image, bool) {
	for _, img := range catalog {
		if img.ID == id {
			return img, true
		}
	}
	return Image{}, false
}

// CachePath returns where the image lands inside the image cache dir.
func (img Image) CachePath(dir string) string {
	return filepath.Join(dir, img.Filename)
}

// IsCached reports whether the image has already been downloaded into dir.
func IsCached(dir string, img Image) bool {
	info, err := os.Stat(img.CachePath(dir))
	return err == nil && info.Mode().IsRegular()
}

// Size returns the cached image size in bytes.
func Size(dir string, img Image) (int64, bool) {
	info, err := os.Stat(img.CachePath(dir))
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), true
}

// httpClient performs image downloads. Swapped out in tests.
var httpClient = http.DefaultClient

// Download fetches the image into dir and returns the cached path. A
// cached copy is reused unless force is set. The image is written to a
// temporary file and renamed into place, so an interrupted download never
// leaves a half-written file behind. progress, when non-nil, receives
// (done, total) byte counts; total is 0 when the server does not say.
func Download(ctx context.Context, dir string, img Image, force bool, progress func(done, total int64)) (string, error) {
	path := img.CachePath(dir)
	if !force && IsCached(dir, img) {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create the image cache directory",
			"Check permissions on "+dir)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building image download request")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrAPI,
			"Downloading "+img.Name+" failed",
			"Check network access to "+img.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(errors.ErrAPI,
			fmt.Sprintf("Downloading %s failed: HTTP %d", img.Name, resp.StatusCode),
			"The image URL may have moved; check "+img.URL)
	}

	tmp, err := os.CreateTemp(dir, img.Filename+".tmp-*")
	if err != nil {
		return "", errors.Wrap(err, "creating temporary image file")
	}
	defer os.Remove(tmp.Name())

	if err := copyWithProgress(tmp, resp.Body, resp.ContentLength, progress); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "downloading "+img.Name)
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "flushing image file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(err, "storing "+img.Filename)
	}
	return path, nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress func(done, total int64)) error {
	if total < 0 {
		total = 0
	}
	var done int64
	buf := make([]byte, 256*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ClearCache removes every downloaded image under dir.
func ClearCache(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading image cache")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return errors.Wrap(err, "removing "+entry.Name())
		}
	}
	return nil
}
