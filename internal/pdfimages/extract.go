// Package pdfimages pulls raster images out of PDF documents and packs
// them into a zip archive.
package pdfimages

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Extractor walks a PDF and archives every embedded image.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor constructs an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract decodes the given PDF bytes and returns a zip archive of its
// embedded images plus the image count. A structurally broken PDF is an
// error; a valid PDF without images yields a count of zero.
func (e *Extractor) Extract(data []byte) ([]byte, int, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, model.NewDefaultConfiguration())
	if err != nil {
		return nil, 0, fmt.Errorf("extract images: %w", err)
	}

	archive, count, err := archivePages(pages)
	if err != nil {
		return nil, 0, err
	}
	e.logger.Info("pdf images extracted", zap.Int("images", count))
	return archive, count, nil
}

// archivePages packs extracted images into a zip archive. Entries are
// named extracted_page{N}_img{M}.png with M counting per page in object
// number order.
func archivePages(pages []map[int]model.Image) ([]byte, int, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	count := 0
	for _, page := range pages {
		objNrs := make([]int, 0, len(page))
		for objNr := range page {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for i, objNr := range objNrs {
			img := page[objNr]
			name := fmt.Sprintf("extracted_page%d_img%d.png", img.PageNr, i+1)
			w, err := zw.Create(name)
			if err != nil {
				return nil, 0, fmt.Errorf("create archive entry %s: %w", name, err)
			}
			if _, err := io.Copy(w, img); err != nil {
				return nil, 0, fmt.Errorf("write archive entry %s: %w", name, err)
			}
			count++
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), count, nil
}
