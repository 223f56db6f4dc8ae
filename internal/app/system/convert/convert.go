// Package convert produces PDF previews of uploaded case documents by
// shelling out to LibreOffice. Converted files are cached in storage next
// to the originals so each attachment is converted at most once.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedStorage means previews need local storage; presigned
	// remote objects are downloaded by the browser instead.
	ErrUnsupportedStorage = errors.New("pdf preview requires local storage")
	// ErrSourceMissing means the original file is gone from storage.
	ErrSourceMissing = errors.New("source file not found in storage")
	// ErrUnconvertible means the file type has no PDF rendition.
	ErrUnconvertible = errors.New("file type cannot be converted to pdf")
)

// convertible lists the extensions LibreOffice handles well enough for
// clinical document previews.
var convertible = map[string]bool{
	".doc": true, ".docx": true, ".odt": true, ".rtf": true, ".txt": true,
	".xls": true, ".xlsx": true, ".ods": true, ".csv": true,
	".ppt": true, ".pptx": true, ".odp": true,
}

type Converter struct {
	store   storage.Store
	soffice string
	log     *zap.Logger
}

// New creates a Converter. sofficePath is the LibreOffice binary; empty
// means "soffice" from PATH.
func New(store storage.Store, sofficePath string, log *zap.Logger) *Converter {
	if sofficePath == "" {
		sofficePath = "soffice"
	}
	return &Converter{store: store, soffice: sofficePath, log: log}
}

// CacheKey maps a source storage key to its PDF rendition's key.
func CacheKey(srcKey string) string {
	return "pdfcache/" + strings.TrimSuffix(srcKey, filepath.Ext(srcKey)) + ".pdf"
}

// IsConvertible reports whether a file (by name) has a PDF rendition path.
// PDFs count: their "rendition" is the file itself.
func IsConvertible(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	return ext == ".pdf" || convertible[ext]
}

// EnsurePDF returns the storage key of a PDF rendition of srcKey,
// converting and caching it on first use. A srcKey that already names a
// PDF is returned unchanged.
func (c *Converter) EnsurePDF(ctx context.Context, srcKey string) (string, error) {
	if strings.ToLower(filepath.Ext(srcKey)) == ".pdf" {
		return srcKey, nil
	}
	if !convertible[strings.ToLower(filepath.Ext(srcKey))] {
		return "", ErrUnconvertible
	}

	local, ok := c.store.(*storage.Local)
	if !ok {
		return "", ErrUnsupportedStorage
	}

	srcPath, err := local.GetFullPath(srcKey)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return "", ErrSourceMissing
	}

	pdfKey := CacheKey(srcKey)
	if pdfPath, err := local.GetFullPath(pdfKey); err == nil {
		if info, err := os.Stat(pdfPath); err == nil && !info.ModTime().Before(srcInfo.ModTime()) {
			return pdfKey, nil // cache hit
		}
	}

	tmpDir, err := os.MkdirTemp("", "claritymdt-convert-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cmd := exec.CommandContext(ctx, c.soffice,
		"--headless", "--norestore",
		"--convert-to", "pdf",
		"--outdir", tmpDir,
		srcPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		c.log.Error("soffice conversion failed",
			zap.String("src", srcKey),
			zap.ByteString("output", out),
			zap.Error(err))
		return "", fmt.Errorf("convert %s: %w", srcKey, err)
	}

	produced := filepath.Join(tmpDir,
		strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))+".pdf")
	f, err := os.Open(produced)
	if err != nil {
		return "", fmt.Errorf("open converted pdf: %w", err)
	}
	defer f.Close()

	if err := c.store.Put(ctx, pdfKey, f, &storage.PutOptions{ContentType: "application/pdf"}); err != nil {
		return "", fmt.Errorf("store converted pdf: %w", err)
	}

	c.log.Info("pdf rendition cached",
		zap.String("src", srcKey),
		zap.String("pdf", pdfKey))
	return pdfKey, nil
}
