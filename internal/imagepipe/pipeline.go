// Package imagepipe regenerates offer images through the image provider and
// degrades to a plain re-encode when the provider cannot help.
package imagepipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"strings"

	_ "golang.org/x/image/webp"

	"offersync/internal/domain"
	"offersync/internal/imagegen"
	"offersync/internal/infra"
	"offersync/internal/providers"
	"offersync/internal/storage"
	"offersync/internal/telemetry"
)

const fallbackJPEGQuality = 92

// ImageRequest asks for one image to be regenerated.
type ImageRequest struct {
	SourceURL string
	Edit      domain.ImageEdit
}

// Result points at the edited file. The caller owns the file and must call
// Cleanup once it has been uploaded.
type Result struct {
	Path     string
	MIME     string
	Fallback bool
	Cleanup  func()
}

type Pipeline struct {
	store      *storage.FileStore
	downloader Downloader
	editor     providers.ImageEditor
	logger     infra.Logger
	metrics    *telemetry.Metrics
}

// NewPipeline wires the pipeline. editor may be nil, in which case every
// request takes the re-encode path.
func NewPipeline(store *storage.FileStore, downloader Downloader, editor providers.ImageEditor, logger infra.Logger, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		store:      store,
		downloader: downloader,
		editor:     editor,
		logger:     logger,
		metrics:    metrics,
	}
}

type loadedImage struct {
	path string
	mime string
	data []byte
}

// Process downloads the source, asks the provider for the edit and writes the
// output to a temp file. Provider failures never surface; only an unusable
// source is an error.
func (p *Pipeline) Process(ctx context.Context, req ImageRequest) (Result, error) {
	var temps []string
	defer func() {
		for _, path := range temps {
			if err := p.store.Remove(path); err != nil {
				p.logger.Warn().Err(err).Msg("imagepipe: cleanup failed")
			}
		}
	}()
	log := p.logger.With().Str("edit", string(req.Edit.Type)).Logger()

	source, err := p.load(ctx, req.SourceURL, &temps)
	if err != nil {
		return Result{}, fmt.Errorf("load source image: %w", err)
	}
	inputs := []providers.ImageInput{{MIME: source.mime, Data: source.data}}

	hasBackground := false
	if req.Edit.Type == domain.ImageReplaceBackground && strings.TrimSpace(req.Edit.BackgroundImageURL) != "" {
		bg, err := p.load(ctx, req.Edit.BackgroundImageURL, &temps)
		if err != nil {
			log.Warn().Err(err).Msg("imagepipe: background image unavailable, using prompt only")
		} else {
			inputs = append(inputs, providers.ImageInput{MIME: bg.mime, Data: bg.data})
			hasBackground = true
		}
	}

	output, fallback := p.edit(ctx, log, imagegen.BuildInstruction(req.Edit, hasBackground), inputs)
	if fallback {
		p.metrics.ImageFallback(string(req.Edit.Type))
		reencoded, err := reencode(source.data)
		if err != nil {
			return Result{}, fmt.Errorf("re-encode source image: %w", err)
		}
		output = &providers.ImageOutput{MIME: "image/jpeg", Data: reencoded}
	}

	out, err := p.store.CreateTemp("edit-*" + extensionFor(output.MIME))
	if err != nil {
		return Result{}, err
	}
	temps = append(temps, out.Name())
	if _, err := out.Write(output.Data); err != nil {
		_ = out.Close()
		return Result{}, fmt.Errorf("write edited image: %w", err)
	}
	if err := out.Close(); err != nil {
		return Result{}, fmt.Errorf("close edited image: %w", err)
	}
	// ownership of the output passes to the caller
	temps = temps[:len(temps)-1]
	path := out.Name()
	return Result{
		Path:     path,
		MIME:     output.MIME,
		Fallback: fallback,
		Cleanup: func() {
			if err := p.store.Remove(path); err != nil {
				p.logger.Warn().Err(err).Msg("imagepipe: output cleanup failed")
			}
		},
	}, nil
}

func (p *Pipeline) edit(ctx context.Context, log infra.Logger, instruction string, inputs []providers.ImageInput) (*providers.ImageOutput, bool) {
	if p.editor == nil {
		return nil, true
	}
	out, err := p.editor.EditImage(ctx, instruction, inputs)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("imagepipe: provider edit failed, re-encoding original")
		return nil, true
	case out == nil || len(out.Data) == 0:
		log.Warn().Msg("imagepipe: provider returned no image, re-encoding original")
		return nil, true
	}
	if out.MIME == "" {
		out.MIME = http.DetectContentType(out.Data)
	}
	return out, false
}

// load reads a local path under the store root or downloads a remote URL
// into a tracked temp file.
func (p *Pipeline) load(ctx context.Context, ref string, temps *[]string) (loadedImage, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return loadedImage{}, errors.New("empty image reference")
	}
	if !strings.Contains(ref, "://") {
		path, err := p.store.Resolve(ref)
		if err != nil {
			return loadedImage{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return loadedImage{}, fmt.Errorf("read local image: %w", err)
		}
		return loadedImage{path: path, mime: http.DetectContentType(data), data: data}, nil
	}

	f, err := p.store.CreateTemp("src-*")
	if err != nil {
		return loadedImage{}, err
	}
	*temps = append(*temps, f.Name())
	mime, err := p.downloader.Download(ctx, ref, f)
	closeErr := f.Close()
	if err != nil {
		return loadedImage{}, err
	}
	if closeErr != nil {
		return loadedImage{}, fmt.Errorf("close download: %w", closeErr)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		return loadedImage{}, fmt.Errorf("read download: %w", err)
	}
	if len(data) == 0 {
		return loadedImage{}, errors.New("downloaded image is empty")
	}
	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = sniffed
	}
	if !strings.HasPrefix(mime, "image/") {
		return loadedImage{}, fmt.Errorf("downloaded content is %s, not an image", sniffed)
	}
	return loadedImage{path: f.Name(), mime: mime, data: data}, nil
}

func reencode(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: fallbackJPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func extensionFor(mime string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
