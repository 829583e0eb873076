// Package batch converts every matching file of a directory and keeps an XML
// report of the results.
package batch

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

type Result struct {
	File        string      `xml:"File"`
	Fingerprint string      `xml:"Fingerprint"`
	Converter   string      `xml:"Converter"`
	Output      string      `xml:"Output,omitempty"`
	OutputFile  string      `xml:"OutputFile,omitempty"`
	Language    string      `xml:"Language,omitempty"`
	Text        string      `xml:"Text,omitempty"`
	History     []stim.Step `xml:"History>Step"`
	ComputedAt  time.Time   `xml:"ComputedAt"`
	Cached      bool        `xml:"Cached"`
	Error       string      `xml:"Error,omitempty"`
}

type Report struct {
	XMLName xml.Name `xml:"ConversionResults"`
	Results []Result `xml:"Result"`
}

// Processor converts files to a target modality.
type Processor struct {
	// Registry resolves converters; defaults to converters.DefaultRegistry.
	Registry *converters.Registry
	// Cache memoizes conversions; nil disables caching.
	Cache  *cache.Cache
	Logger *zap.Logger
	// Converter, when set, is used instead of a registry lookup.
	Converter converters.Converter
	// Load opens a file as a stimulus; defaults to LoadFile.
	Load func(ctx context.Context, path string) (stim.Stim, error)
}

func (p *Processor) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Processor) registry() *converters.Registry {
	if p.Registry == nil {
		return converters.DefaultRegistry
	}
	return p.Registry
}

// ProcessDirectory converts every file under dir whose extension is ext to
// the target modality. Results are merged into the report at outputXML, which
// is rewritten after each file. Files whose entry already matches their
// current fingerprint and converter are skipped. A video without audio is
// recorded with an error and does not stop the run; other failures do.
func (p *Processor) ProcessDirectory(ctx context.Context, dir, ext string, target stim.Modality, outputXML string) (Report, error) {
	log := p.logger()
	report, err := ReadReport(outputXML)
	if err != nil {
		return Report{}, err
	}

	existing := make(map[string]int, len(report.Results))
	for i, r := range report.Results {
		existing[r.File] = i
	}

	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	outAbs, _ := filepath.Abs(outputXML)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ext {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == outAbs {
			return nil
		}

		s, err := p.load(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to load '%s': %w", path, err)
		}
		conv, err := p.converter(s.Modality(), target)
		if err != nil {
			return fmt.Errorf("failed to process '%s': %w", path, err)
		}

		i, seen := existing[path]
		if seen {
			prev := report.Results[i]
			if prev.Error == "" && prev.Fingerprint == s.Fingerprint() && prev.Converter == conv.Name() {
				log.Info("file already processed, skipping", zap.String("file", path))
				return nil
			}
		}

		result, err := p.processFile(ctx, path, s, conv)
		if err != nil {
			return fmt.Errorf("failed to process '%s': %w", path, err)
		}
		if seen {
			report.Results[i] = result
		} else {
			existing[path] = len(report.Results)
			report.Results = append(report.Results, result)
		}

		if err := WriteReport(outputXML, report); err != nil {
			return err
		}
		log.Debug("report updated", zap.String("report", outputXML), zap.Int("results", len(report.Results)))
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (p *Processor) load(ctx context.Context, path string) (stim.Stim, error) {
	if p.Load != nil {
		return p.Load(ctx, path)
	}
	return LoadFile(ctx, path)
}

func (p *Processor) converter(src, dst stim.Modality) (converters.Converter, error) {
	if p.Converter != nil {
		return p.Converter, nil
	}
	reg := p.registry()
	if c := reg.GetConverter(src, dst); c != nil {
		return c, nil
	}
	return converters.NewMultistep(reg, p.Cache, src, dst)
}

func (p *Processor) processFile(ctx context.Context, path string, s stim.Stim, conv converters.Converter) (Result, error) {
	log := p.logger().With(zap.String("file", path), zap.String("converter", conv.Name()))
	result := Result{File: path, Fingerprint: s.Fingerprint(), Converter: conv.Name()}

	memo := converters.NewMemo(conv, p.Cache)
	start := time.Now()
	out, err := memo.Convert(ctx, s)
	if errors.Is(err, converters.ErrNoAudioStream) {
		log.Warn("skipping file without audio stream")
		result.Error = "no audio stream"
		result.ComputedAt = time.Now()
		return result, nil
	}
	if err != nil {
		return Result{}, err
	}

	result.Output = out.Name()
	result.OutputFile = out.Filename()
	result.History = out.History()
	result.ComputedAt = memo.Timestamp()
	result.Cached = memo.Cached()
	switch v := out.(type) {
	case *stim.TextStim:
		result.Text = v.Text()
		result.Language = v.Language()
	case *stim.ComplexTextStim:
		result.Text = v.Join()
		result.Language = v.Language()
	}

	log.Info("converted",
		zap.String("output", result.Output),
		zap.Bool("cached", result.Cached),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// ReadReport reads an XML report. A missing file gives an empty report.
func ReadReport(path string) (Report, error) {
	var report Report
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("failed to open existing XML file: %w", err)
	}
	if err := xml.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("failed to decode existing XML: %w", err)
	}
	return report, nil
}

// WriteReport writes report to path, replacing any previous content.
func WriteReport(path string, report Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create XML file '%s': %w", path, err)
	}
	defer file.Close()

	if _, err := file.WriteString(xml.Header); err != nil {
		return fmt.Errorf("failed to write XML to '%s': %w", path, err)
	}
	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode XML to '%s': %w", path, err)
	}
	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("failed to flush XML encoder: %w", err)
	}
	return file.Close()
}
