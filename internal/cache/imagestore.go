package cache

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/disintegration/imaging"
)

// ImageStore is the content-addressed half of the Metadata Cache
// (spec.md §4.2 Storage layout): a directory of resized covers/avatars,
// one hi-res and one thumbnail file per key. The interface shape is
// adapted from the teacher's pkg/objstore.ObjectStore (Put/Exists/
// Delete), specialized here to two fixed sizes instead of arbitrary
// byte ranges, since every reader wants a whole decoded image.
type ImageStore struct {
	root     string
	hiResDim int
	thumbDim int
}

// NewImageStore returns an ImageStore rooted at dir (created if
// needed), resizing hi-res/thumbnail images to the configured square
// dimensions.
func NewImageStore(dir string, hiResDim, thumbDim int) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create image store root %q: %w", dir, err)
	}
	return &ImageStore{root: dir, hiResDim: hiResDim, thumbDim: thumbDim}, nil
}

// HashKey renders a cover/avatar key (a folder or song URI) to the
// decimal filename stem used on disk, via a fast 64-bit non-cryptographic
// hash (spec.md §4.2 Key scheme).
func HashKey(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 10)
}

func (s *ImageStore) pathFor(hash string, thumbnail bool) string {
	name := hash + ".png"
	if thumbnail {
		name = hash + "_thumb.png"
	}
	return filepath.Join(s.root, name)
}

// Store decodes raw image bytes, resizes to both the hi-res and
// thumbnail dimensions, and writes both PNGs under the content-address
// of key. Returns the two filenames (relative to the store root) as
// registered in the covers table.
func (s *ImageStore) Store(key string, raw []byte) (hiResFile, thumbFile string, err error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("cache: decode image: %w", err)
	}

	hash := HashKey(key)
	hiRes := imaging.Fit(img, s.hiResDim, s.hiResDim, imaging.Lanczos)
	thumb := imaging.Fit(img, s.thumbDim, s.thumbDim, imaging.Lanczos)

	hiResFile = hash + ".png"
	thumbFile = hash + "_thumb.png"

	if err := imaging.Save(hiRes, s.pathFor(hash, false)); err != nil {
		return "", "", fmt.Errorf("cache: save hi-res image: %w", err)
	}
	if err := imaging.Save(thumb, s.pathFor(hash, true)); err != nil {
		return "", "", fmt.Errorf("cache: save thumbnail image: %w", err)
	}
	return hiResFile, thumbFile, nil
}

// Load reads a previously stored PNG file back into memory and returns
// its encoded bytes; nothing in this package decodes them.
func (s *ImageStore) Load(filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filename))
	if err != nil {
		return nil, fmt.Errorf("cache: load image %q: %w", filename, err)
	}
	return data, nil
}

// Delete removes a stored image file. A non-existent file is not an
// error, matching the teacher's ObjectStore.Delete contract.
func (s *ImageStore) Delete(filename string) error {
	err := os.Remove(filepath.Join(s.root, filename))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
