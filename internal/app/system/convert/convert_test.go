package convert_test

import (
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/convert"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"attachments/2026/08/ab12-scan.docx", "pdfcache/attachments/2026/08/ab12-scan.pdf"},
		{"attachments/report.xlsx", "pdfcache/attachments/report.pdf"},
		{"noext", "pdfcache/noext.pdf"},
	}
	for _, tt := range tests {
		if got := convert.CacheKey(tt.src); got != tt.want {
			t.Errorf("CacheKey(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestIsConvertible(t *testing.T) {
	yes := []string{"a.pdf", "b.docx", "c.DOC", "d.xlsx", "e.pptx", "f.txt"}
	for _, name := range yes {
		if !convert.IsConvertible(name) {
			t.Errorf("expected %q to be convertible", name)
		}
	}
	no := []string{"image.png", "scan.jpg", "video.mp4", "archive.zip", "noext"}
	for _, name := range no {
		if convert.IsConvertible(name) {
			t.Errorf("expected %q to not be convertible", name)
		}
	}
}
