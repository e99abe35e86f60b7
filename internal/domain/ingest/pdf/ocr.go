package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const StrategyOCR = "ocr"

// Recognizer turns a rendered page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// TesseractRecognizer shells out to the tesseract CLI.
type TesseractRecognizer struct {
	Command string
	Args    []string
}

// NewTesseractRecognizer uses page segmentation mode 6, a single uniform
// block of text, which suits statement tables.
func NewTesseractRecognizer(command string) *TesseractRecognizer {
	if command == "" {
		command = "tesseract"
	}
	return &TesseractRecognizer{Command: command, Args: []string{"--psm", "6"}}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	dir, err := os.MkdirTemp("", "runway-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create ocr workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "page.png")
	if err := os.WriteFile(in, png, 0o600); err != nil {
		return "", fmt.Errorf("write page image: %w", err)
	}

	args := append([]string{in, "stdout"}, t.Args...)
	cmd := exec.CommandContext(ctx, t.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", t.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// OCRStrategy renders each page and recognizes it, then applies the
// text-line heuristics to the recognized text.
type OCRStrategy struct {
	open            RendererOpener
	recognizer      Recognizer
	dpi             float64
	minAmountTokens int
	logger          *slog.Logger
}

// NewOCRStrategy creates the OCR strategy.
func NewOCRStrategy(open RendererOpener, recognizer Recognizer, dpi float64, logger *slog.Logger) *OCRStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &OCRStrategy{
		open:            open,
		recognizer:      recognizer,
		dpi:             dpi,
		minAmountTokens: DefaultMinAmountTokens,
		logger:          logger,
	}
}

// WithMinAmountTokens sets how many amounts a recognized line needs.
func (s *OCRStrategy) WithMinAmountTokens(n int) *OCRStrategy {
	if n >= 1 {
		s.minAmountTokens = n
	}
	return s
}

func (s *OCRStrategy) Name() string { return StrategyOCR }

func (s *OCRStrategy) Extract(ctx context.Context, path string) (*Extraction, error) {
	doc, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	file := fileName(path)
	out := &Extraction{}
	pages := doc.NumPage()
	failed := 0
	var lastErr error

	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1

		text, err := s.recognizePage(ctx, doc, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			s.logger.Warn("page recognition failed",
				"strategy", StrategyOCR,
				"page", page,
				slog.Any("error", err),
			)
			continue
		}

		rows, preamble := parseTextLines(strings.Split(text, "\n"), s.minAmountTokens)
		for j := range rows {
			rows[j].Page, rows[j].Strategy, rows[j].File = page, StrategyOCR, file
		}
		out.Rows = append(out.Rows, rows...)
		if len(out.Preamble) == 0 {
			out.Preamble = preamble
		}
	}

	if pages > 0 && failed == pages {
		return nil, fmt.Errorf("all %d pages failed: %w", pages, lastErr)
	}
	return out, nil
}

func (s *OCRStrategy) recognizePage(ctx context.Context, doc Renderer, index int) (text string, err error) {
	png, err := renderPage(doc, index, s.dpi)
	if err != nil {
		return "", err
	}
	return s.recognizer.Recognize(ctx, png)
}

func renderPage(doc Renderer, index int, dpi float64) (png []byte, err error) {
	defer recoverPage(index+1, &err)
	return doc.ImagePNG(index, dpi)
}
