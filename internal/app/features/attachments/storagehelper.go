package attachments

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
)

// uploadInfo describes a stored case document.
type uploadInfo struct {
	Path        string
	FileName    string
	Size        int64
	ContentType string
}

// uploadFile stores a case document under a unique key of the form
// attachments/YYYY/MM/uuid-filename so two uploads of the same report
// never collide.
func uploadFile(ctx context.Context, store storage.Store, filename string, reader io.Reader, size int64, contentType string) (uploadInfo, error) {
	now := time.Now().UTC()
	dateDir := fmt.Sprintf("attachments/%04d/%02d", now.Year(), now.Month())
	uniqueName := fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(filename))
	path := filepath.ToSlash(filepath.Join(dateDir, uniqueName))

	opts := &storage.PutOptions{ContentType: contentType}
	if err := store.Put(ctx, path, reader, opts); err != nil {
		return uploadInfo{}, fmt.Errorf("failed to upload file: %w", err)
	}

	return uploadInfo{
		Path:        path,
		FileName:    filename,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// sanitizeFilename removes or replaces characters that could be problematic in filenames.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		// Truncate but preserve extension if present
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}

	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.'
}
