package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/internal/config"
)

var (
	configPath  string
	verbose     bool
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "stimconv",
	Short: "Convert media stimuli between modalities",
	Long: `stimconv converts video, audio, image and text stimuli into one another.

Results are cached, so converting the same file twice only calls ffmpeg,
tesseract or the OpenAI API once. Settings come from stimconv.yaml, a .env
file and STIMCONV_* environment variables; OPENAI_API_KEY is required for the
remote converters.

Examples:
  stimconv convert talk.mp4 --to text
  stimconv convert clip.mp4 --every 30 --to text
  stimconv dir ./videos --ext mp4 --to text --out results.xml
  stimconv cache clear`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write cache metrics to this file in Prometheus text format")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	cache    *cache.Cache
	registry *converters.Registry
	metrics  *prometheus.Registry
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.TmpDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", cfg.TmpDir, err)
	}
	store, err := config.OpenStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: reg,
		cache:   cache.New(store, cache.WithLogger(logger), cache.WithRegisterer(reg)),
	}
	a.registry = newRegistry(cfg)
	logger.Debug("stimconv ready",
		zap.String("cache", cfg.Cache.Backend),
		zap.String("tmp_dir", cfg.TmpDir))
	return a, nil
}

func (a *app) close() {
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, a.metrics); err != nil {
			a.logger.Warn("failed to write metrics", zap.String("file", metricsFile), zap.Error(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close cache", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newRegistry registers the built-in converters with options taken from cfg.
func newRegistry(cfg *config.Config) *converters.Registry {
	reg := converters.NewRegistry()
	for _, r := range converters.Builtins() {
		newConv := r.New
		r.New = func() converters.Converter {
			c := newConv()
			configure(c, cfg)
			return c
		}
		reg.MustRegister(r)
	}
	return reg
}

func configure(c converters.Converter, cfg *config.Config) {
	switch c := c.(type) {
	case *converters.VideoToAudioConverter:
		c.OutputDir = cfg.TmpDir
	case *converters.WhisperConverter:
		c.MaxDuration = cfg.Whisper.MaxDuration
	case *converters.TesseractConverter:
		c.TmpDir = cfg.TmpDir
	case *converters.VisionTextConverter:
		c.TmpDir = cfg.TmpDir
	}
}

// cleanupTmpDir removes the intermediate files left in tmpDir.
func cleanupTmpDir(tmpDir string, logger *zap.Logger) {
	files, err := os.ReadDir(tmpDir)
	if err != nil {
		logger.Warn("failed to read tmp directory", zap.String("dir", tmpDir), zap.Error(err))
		return
	}
	for _, file := range files {
		if err := os.RemoveAll(filepath.Join(tmpDir, file.Name())); err != nil {
			logger.Warn("failed to remove file", zap.String("file", file.Name()), zap.Error(err))
		}
	}
}
