// Package images copies and optimizes image files.
package images

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/pipeline/incremental"
	"go.trai.ch/kiln/internal/pipeline/report"
	"go.trai.ch/kiln/internal/pipeline/svgmin"
	"go.trai.ch/zerr"
)

// NotificationTitle is the title of notifications about broken images.
const NotificationTitle = "Images"

// Optimizer runs the images task.
type Optimizer struct {
	notifier ports.Notifier
	history  *incremental.History
}

// New creates an Optimizer. history is shared across runs of the process.
func New(notifier ports.Notifier, history *incremental.History) *Optimizer {
	return &Optimizer{notifier: notifier, history: history}
}

// Run optimizes every changed image into the image output directory.
func (o *Optimizer) Run(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	failures := report.NewFailures(o.notifier, NotificationTitle, out)
	err := incremental.Run(ctx, cfg, o.history, incremental.Job{
		Task:      domain.TaskImages,
		Src:       cfg.Paths.Img.Src,
		Dest:      cfg.Paths.Img.Dest,
		Transform: Optimize,
	}, failures, out)
	if err != nil {
		return err
	}
	return failures.Err()
}

// Optimize shrinks one image without loss. PNG files are re-encoded at the
// best compression level and SVG files are minified. Other formats are
// returned unchanged.
func Optimize(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return optimizePNG(data)
	case ".svg":
		return svgmin.Minify(data)
	default:
		return data, nil
	}
}

// optimizePNG keeps the re-encoded image only when it is smaller.
func optimizePNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrTransformFailed.Error())
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, zerr.Wrap(err, domain.ErrTransformFailed.Error())
	}
	if buf.Len() >= len(data) {
		return data, nil
	}
	return buf.Bytes(), nil
}
