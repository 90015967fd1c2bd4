package catalog

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload limits, matching the public API contract.
const (
	MaxImagesPerUpload = 5
	maxImageBytes      = 1 << 20
)

// UploadFailure describes a single rejected file.
type UploadFailure struct {
	Image string `json:"image"`
	Cause string `json:"errorCause"`
}

// UploadResult reports the outcome of an image upload batch. Individual
// file failures do not fail the batch.
type UploadResult struct {
	Saved  []string        `json:"success"`
	Failed []UploadFailure `json:"failed"`
}

// ImageStore writes product images to a directory on disk.
type ImageStore struct {
	dir string
}

// NewImageStore constructs an ImageStore, creating the directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: create upload dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// SaveAll validates and stores the uploaded files, renaming each to a
// collision-free name derived from the product id.
func (s *ImageStore) SaveAll(productID int64, files []*multipart.FileHeader) UploadResult {
	var result UploadResult
	for _, header := range files {
		if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
			result.Failed = append(result.Failed, UploadFailure{
				Image: header.Filename,
				Cause: "please only upload image files",
			})
			continue
		}
		if header.Size > maxImageBytes {
			result.Failed = append(result.Failed, UploadFailure{
				Image: header.Filename,
				Cause: fmt.Sprintf("file over limit (file: %d, limit: %d bytes)", header.Size, maxImageBytes),
			})
			continue
		}

		name := fmt.Sprintf("%d_%s%s", productID, uuid.NewString(), filepath.Ext(header.Filename))
		if err := s.write(header, name); err != nil {
			result.Failed = append(result.Failed, UploadFailure{Image: header.Filename, Cause: err.Error()})
			continue
		}
		result.Saved = append(result.Saved, name)
	}
	return result
}

func (s *ImageStore) write(header *multipart.FileHeader, name string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Remove deletes the named files, ignoring ones already gone.
func (s *ImageStore) Remove(names []string) error {
	for _, name := range names {
		// filepath.Base guards against path traversal in stored names.
		err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Dir returns the directory images are served from.
func (s *ImageStore) Dir() string {
	return s.dir
}
