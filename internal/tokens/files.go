package tokens

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"rsc.io/pdf"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// ErrUnsupportedContentType marks a file whose type the target model
// cannot process. Callers must not fall back silently: the request is
// rejected so the caller can change its file selection.
var ErrUnsupportedContentType = errors.New("unsupported content type for token estimation")

const (
	// maxTextEstimateBytes caps how much of a text file is read for
	// estimation; larger files are extrapolated linearly.
	maxTextEstimateBytes = 1 << 20

	// fileDelimiterOverhead covers the BEGIN/END framing the reader
	// wraps around each embedded file.
	fileDelimiterOverhead = 40

	// fallbackImageTokens approximates a typical 1024x1024 image for
	// providers without a vision estimator.
	fallbackImageTokens = 765

	// geminiImageTokens is the flat per-image (and per-PDF-page) cost
	// for Gemini models.
	geminiImageTokens = 258
)

var textExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".c": true, ".cpp": true, ".cc": true, ".h": true, ".hpp": true,
	".rs": true, ".rb": true, ".php": true, ".swift": true, ".kt": true, ".scala": true,
	".md": true, ".txt": true, ".rst": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".xml": true, ".html": true, ".css": true, ".scss": true,
	".sql": true, ".sh": true, ".bash": true, ".zsh": true, ".bat": true, ".ps1": true,
	".tf": true, ".proto": true, ".graphql": true, ".env": true, ".ini": true,
	".cfg": true, ".conf": true, ".dockerfile": true, ".makefile": true, ".cmake": true,
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

var rejectedExtensions = map[string]bool{
	// Audio / video: no estimator; rejected rather than guessed at.
	".mp3": true, ".wav": true, ".flac": true, ".ogg": true, ".m4a": true,
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
}

// EstimateFile estimates the token cost of embedding path for the given
// model. Audio, video, and unknown binary types return
// ErrUnsupportedContentType; the caller decides what to do.
func (e *Estimator) EstimateFile(path string, caps llm.Capabilities) (int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		return e.estimateTextFile(path, caps)
	case imageExtensions[ext]:
		return e.estimateImageFile(path, caps)
	case ext == ".pdf":
		return e.estimatePDF(path, caps)
	case rejectedExtensions[ext]:
		return 0, fmt.Errorf("%w: %s (%s)", ErrUnsupportedContentType, path, ext)
	default:
		return 0, fmt.Errorf("%w: %s (unknown extension %q)", ErrUnsupportedContentType, path, ext)
	}
}

// estimateTextFile reads up to maxTextEstimateBytes and estimates the
// body plus the fixed framing overhead. Oversized files are scaled by
// the unread remainder.
func (e *Estimator) estimateTextFile(path string, caps llm.Capabilities) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, maxTextEstimateBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	body := e.EstimateText(string(buf[:n]), caps)
	if size := info.Size(); size > int64(n) && n > 0 {
		// Extrapolate the unread tail at the sampled density.
		body = int(float64(body) * float64(size) / float64(n))
	}
	return body + fileDelimiterOverhead, nil
}

func (e *Estimator) estimateImageFile(path string, caps llm.Capabilities) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		// Undecodable (e.g. webp without a registered decoder): use the
		// flat fallback rather than failing the whole request.
		return fallbackImageTokens, nil
	}
	return visionTokens(cfg.Width, cfg.Height, caps), nil
}

// estimatePDF prices each page as an image (media box dimensions,
// rotation applied) plus the extracted text through the text tokenizer.
func (e *Estimator) estimatePDF(path string, caps llm.Capabilities) (tokens int, err error) {
	defer func() {
		// rsc.io/pdf panics on some malformed files.
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf %s: %w", path, err)
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		w, h := pageDimensions(page)
		tokens += visionTokens(w, h, caps)

		for _, t := range page.Content().Text {
			text.WriteString(t.S)
		}
		text.WriteString("\n")
	}

	tokens += e.EstimateText(text.String(), caps)
	return tokens + fileDelimiterOverhead, nil
}

// pageDimensions reads the media box (in points, treated as pixels) and
// applies the page rotation. Pages without a usable media box default
// to US Letter.
func pageDimensions(page pdf.Page) (int, int) {
	w, h := 612, 792

	box := page.V.Key("MediaBox")
	if box.Len() == 4 {
		x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
		x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
		if x1 > x0 && y1 > y0 {
			w, h = int(x1-x0), int(y1-y0)
		}
	}

	if rot := page.V.Key("Rotate").Int64(); rot == 90 || rot == 270 {
		w, h = h, w
	}
	return w, h
}

// visionTokens prices one image for the model. OpenAI-family models use
// the 512px tile formula; Gemini charges a flat per-image cost; other
// providers get the conservative fallback constant.
func visionTokens(width, height int, caps llm.Capabilities) int {
	switch caps.Tokenizer {
	case llm.TokenizerO200K, llm.TokenizerCL100K:
		return tileTokens(width, height)
	case llm.TokenizerProviderSpecific:
		return geminiImageTokens
	default:
		return fallbackImageTokens
	}
}

// tileTokens implements the OpenAI high-detail vision formula: the
// image is scaled to fit 2048x2048, its short side to 768, then costs
// 85 base tokens plus 170 per 512px tile.
func tileTokens(width, height int) int {
	if width <= 0 || height <= 0 {
		return fallbackImageTokens
	}
	w, h := float64(width), float64(height)

	if longest := math.Max(w, h); longest > 2048 {
		scale := 2048 / longest
		w, h = w*scale, h*scale
	}
	if shortest := math.Min(w, h); shortest > 768 {
		scale := 768 / shortest
		w, h = w*scale, h*scale
	}

	tiles := math.Ceil(w/512) * math.Ceil(h/512)
	return 85 + 170*int(tiles)
}
