package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/graphif/stagecore/internal/attachment"
	"github.com/graphif/stagecore/internal/clipboard"
	"github.com/graphif/stagecore/internal/collab"
	"github.com/graphif/stagecore/internal/document"
	"github.com/graphif/stagecore/internal/export"
	"github.com/graphif/stagecore/internal/stage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#33a0ff"))
	keyStyle   = lipgloss.NewStyle().Faint(true).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func readDocument(path string) ([]byte, *document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, doc, nil
}

func loadStage(path string, checker stage.AttachmentChecker) (*stage.Manager, *document.Document, error) {
	_, doc, err := readDocument(path)
	if err != nil {
		return nil, nil, err
	}
	m, err := stage.FromDocument(doc, checker)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, doc, nil
}

type bounds struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

type summary struct {
	File         string         `json:"file" yaml:"file"`
	Version      int            `json:"version" yaml:"version"`
	Entities     int            `json:"entities" yaml:"entities"`
	Associations int            `json:"associations" yaml:"associations"`
	Tags         int            `json:"tags" yaml:"tags"`
	Kinds        map[string]int `json:"kinds" yaml:"kinds"`
	Bounds       *bounds        `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

func summarize(path string) (*summary, error) {
	m, doc, err := loadStage(path, nil)
	if err != nil {
		return nil, err
	}
	s := &summary{
		File:         path,
		Version:      doc.Version,
		Entities:     len(m.Entities()),
		Associations: len(m.Associations()),
		Tags:         len(m.Tags()),
		Kinds:        make(map[string]int),
	}
	for _, o := range m.Objects() {
		s.Kinds[string(o.Kind())]++
	}
	if r, ok := m.BoundingRectangle(); ok {
		s.Bounds = &bounds{X: r.Left(), Y: r.Top(), Width: r.Width(), Height: r.Height()}
	}
	return s, nil
}

func info(w io.Writer, path, format string) error {
	s, err := summarize(path)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(s)
	case "text":
	default:
		return fmt.Errorf("unknown format %q: %w", format, errUsage)
	}

	row := func(k string, v any) string {
		return keyStyle.Render(k) + fmt.Sprint(v)
	}
	lines := []string{
		titleStyle.Render(s.File),
		row("version", s.Version),
		row("entities", s.Entities),
		row("associations", s.Associations),
		row("tags", s.Tags),
	}
	if s.Bounds != nil {
		lines = append(lines, row("bounds", fmt.Sprintf("%.0f,%.0f %.0fx%.0f", s.Bounds.X, s.Bounds.Y, s.Bounds.Width, s.Bounds.Height)))
	}
	for _, k := range slices.Sorted(maps.Keys(s.Kinds)) {
		lines = append(lines, row(strings.TrimPrefix(k, "core:"), s.Kinds[k]))
	}
	_, err = fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return err
}

var errInvalid = errors.New("document is invalid")

func validate(w io.Writer, path string) error {
	_, _, err := loadStage(path, nil)
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			fmt.Fprintln(w, errStyle.Render("✗ ")+line)
		}
		return errInvalid
	}
	fmt.Fprintln(w, okStyle.Render("✓ ")+path)
	return nil
}

func create(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("-o is required: %w", errUsage)
	}
	return os.Create(path)
}

func exportPNG(ctx context.Context, progress io.Writer, path, out string, scale float64, attachmentDir string) error {
	opts := export.Options{Scale: scale}
	var checker stage.AttachmentChecker
	if attachmentDir != "" {
		store, err := attachment.NewDirStore(attachmentDir)
		if err != nil {
			return err
		}
		opts.Attachments = store
		checker = attachment.Checker{Store: store}
	}
	m, _, err := loadStage(path, checker)
	if err != nil {
		return err
	}
	img, err := export.PNG(ctx, m, opts, func(done, total int) {
		fmt.Fprintf(progress, "\rtile %d/%d", done, total)
		if done == total {
			fmt.Fprintln(progress)
		}
	})
	if err != nil {
		return err
	}

	f, err := create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

func exportSVG(path, out string) error {
	m, _, err := loadStage(path, nil)
	if err != nil {
		return err
	}
	f, err := create(out)
	if err != nil {
		return err
	}
	if err := export.SVG(f, m, export.SVGOptions{Background: "#1e1e1e"}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyText(w io.Writer, path string, toStdout bool) error {
	m, _, err := loadStage(path, nil)
	if err != nil {
		return err
	}
	var mirror clipboard.TextMirror
	if toStdout {
		mirror.Write = func(text string) error {
			_, err := fmt.Fprintln(w, text)
			return err
		}
	}
	return mirror.Mirror(m.Objects())
}

func diff(w io.Writer, beforePath, afterPath string) error {
	before, _, err := readDocument(beforePath)
	if err != nil {
		return err
	}
	after, _, err := readDocument(afterPath)
	if err != nil {
		return err
	}
	patch, err := collab.Diff(before, after)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(patch))
	return err
}
