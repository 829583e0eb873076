package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/stimconv/batch"
	"github.com/HugeFrog24/stimconv/converters"
	"github.com/HugeFrog24/stimconv/stim"
)

var (
	convertTo   string
	convertWith string
	every       int
	hertz       float64

	dirExt string
	dirOut string

	listFrom string
	listTo   string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Convert a single file",
	Long: `Convert a file to another modality.

The converter is picked from the registry unless --converter names one. When
no single converter fits, a chain of converters is used. With --every or
--hertz a video is first sampled and each kept frame is converted on its own.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

var dirCmd = &cobra.Command{
	Use:   "dir <directory>",
	Short: "Convert every matching file of a directory into an XML report",
	Args:  cobra.ExactArgs(1),
	RunE:  runDir,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the conversion cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached result and intermediate file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cache.Clear(cmd.Context()); err != nil {
			return err
		}
		cleanupTmpDir(a.cfg.TmpDir, a.logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cache\n", a.cfg.Cache.Backend)
		return nil
	},
}

var convertersCmd = &cobra.Command{
	Use:   "converters",
	Short: "List registered converters",
	Long: `List registered converters. With --from and --to, list the converters
between two modalities in the order they are preferred.`,
	Args: cobra.NoArgs,
	RunE: runConverters,
}

func init() {
	convertCmd.Flags().StringVarP(&convertTo, "to", "t", string(stim.Text), "target modality")
	convertCmd.Flags().StringVar(&convertWith, "converter", "", "converter name, overrides --to")
	convertCmd.Flags().IntVar(&every, "every", 0, "keep every n-th video frame")
	convertCmd.Flags().Float64Var(&hertz, "hertz", 0, "keep video frames at this rate")
	convertCmd.MarkFlagsMutuallyExclusive("every", "hertz")

	dirCmd.Flags().StringVarP(&convertTo, "to", "t", string(stim.Text), "target modality")
	dirCmd.Flags().StringVar(&convertWith, "converter", "", "converter name, overrides --to")
	dirCmd.Flags().StringVar(&dirExt, "ext", "mp4", "file extension to convert")
	dirCmd.Flags().StringVarP(&dirOut, "out", "o", "results.xml", "XML report")

	convertersCmd.Flags().StringVar(&listFrom, "from", "", "source modality")
	convertersCmd.Flags().StringVar(&listTo, "to", "", "target modality")

	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(convertCmd, dirCmd, cacheCmd, convertersCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	to, err := stim.ParseModality(convertTo)
	if err != nil {
		return err
	}
	s, err := batch.LoadFile(ctx, args[0])
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if every > 0 || hertz > 0 {
		sampler := &converters.FrameSamplingConverter{Every: every, Hertz: hertz}
		out, err := converters.Convert(ctx, a.cache, sampler, s)
		if err != nil {
			return err
		}
		derived := out.(*stim.DerivedVideoStim)
		fmt.Fprintf(w, "%s: kept %d frames (%v)\n", derived.Name(), derived.Len(), derived.History().Filters())
		if to == stim.Video {
			return nil
		}
		conv, err := pickConverter(a, stim.Image, to)
		if err != nil {
			return err
		}
		memo := converters.NewMemo(conv, a.cache)
		for _, frame := range derived.Frames() {
			res, err := memo.Convert(ctx, frame)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "[%7.2fs] ", frame.Onset())
			printResult(w, res, memo)
		}
		return nil
	}

	conv, err := pickConverter(a, s.Modality(), to)
	if err != nil {
		return err
	}
	a.logger.Debug("converting", zap.String("file", args[0]), zap.String("converter", conv.Name()))
	memo := converters.NewMemo(conv, a.cache)
	out, err := memo.Convert(ctx, s)
	if err != nil {
		return err
	}
	printResult(w, out, memo)
	return nil
}

// pickConverter returns the converter named by --converter, else the
// preferred converter from src to dst, else a chain.
func pickConverter(a *app, src, dst stim.Modality) (converters.Converter, error) {
	if convertWith != "" {
		reg, ok := a.registry.Lookup(convertWith)
		if !ok {
			return nil, fmt.Errorf("unknown converter %q", convertWith)
		}
		return reg.New(), nil
	}
	if c := a.registry.GetConverter(src, dst); c != nil {
		return c, nil
	}
	return converters.NewMultistep(a.registry, a.cache, src, dst)
}

func printResult(w io.Writer, s stim.Stim, memo *converters.Memo) {
	status := "computed"
	if memo.Cached() {
		status = "cached"
	}
	fmt.Fprintf(w, "%s [%s, %s %s]\n", s.Name(), s.Kind(), status, memo.Timestamp().Format(time.RFC3339))
	switch v := s.(type) {
	case *stim.TextStim:
		fmt.Fprintln(w, v.Text())
	case *stim.ComplexTextStim:
		for e := range v.Elements() {
			t := e.(*stim.TextStim)
			fmt.Fprintf(w, "%8.2f  %s\n", t.Onset(), t.Text())
		}
	default:
		if f := s.Filename(); f != "" {
			fmt.Fprintln(w, f)
		}
	}
}

func runDir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	to, err := stim.ParseModality(convertTo)
	if err != nil {
		return err
	}
	p := &batch.Processor{Registry: a.registry, Cache: a.cache, Logger: a.logger}
	if convertWith != "" {
		if p.Converter, err = pickConverter(a, "", to); err != nil {
			return err
		}
	}
	report, err := p.ProcessDirectory(ctx, args[0], dirExt, to, dirOut)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d results written to %s\n", len(report.Results), dirOut)
	return nil
}

func runConverters(cmd *cobra.Command, args []string) error {
	reg := converters.NewDefaultRegistry()
	regs := reg.Registrations()
	if listFrom != "" || listTo != "" {
		from, err := stim.ParseModality(listFrom)
		if err != nil {
			return err
		}
		to, err := stim.ParseModality(listTo)
		if err != nil {
			return err
		}
		regs = reg.Candidates(from, to)
		if len(regs) == 0 {
			path, err := reg.Path(from, to)
			if err != nil {
				return err
			}
			regs = path
			fmt.Fprintln(cmd.OutOrStdout(), "No direct converter; chain:")
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tINPUT\tOUTPUT\tREMOTE")
	for _, r := range regs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.Name, r.Input, r.Output, r.Remote)
	}
	return tw.Flush()
}
