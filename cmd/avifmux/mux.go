package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-avifmux"
	"github.com/logicossoftware/go-avifmux/internal/bitstream"
)

func newMuxCommand(root *rootOptions) *cobra.Command {
	var (
		jobPath string
		flags   Job
		limits  bitstream.Limits
	)

	cmd := &cobra.Command{
		Use:   "mux",
		Short: "Write an AVIF file from AV1 bitstreams",
		Long: `Write an AVIF file from an AV1 color bitstream and an optional AV1 alpha
bitstream. Inputs may be stored plain or compressed with zip, zstd, lz4 or
brotli. Settings come from --job and are overridden by explicit flags. Use
--out - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job := &Job{Depth: 8}
			if jobPath != "" {
				var err error
				if job, err = LoadJob(jobPath); err != nil {
					return err
				}
			}
			applyFlags(cmd, job, &flags)
			if err := job.Validate(); err != nil {
				return err
			}
			return runMux(cmd, root.log, job, limits)
		},
	}

	cmd.Flags().StringVar(&jobPath, "job", "", "YAML job file")
	cmd.Flags().StringVar(&flags.Color, "color", "", "AV1 color bitstream (4:4:4)")
	cmd.Flags().StringVar(&flags.Alpha, "alpha", "", "AV1 alpha bitstream (4:0:0)")
	cmd.Flags().Uint32Var(&flags.Width, "width", 0, "image width in pixels")
	cmd.Flags().Uint32Var(&flags.Height, "height", 0, "image height in pixels")
	cmd.Flags().Uint8Var(&flags.Depth, "depth", 8, "bit depth (8, 10 or 12)")
	cmd.Flags().BoolVar(&flags.Premultiplied, "premultiplied", false, "color is premultiplied by alpha")
	cmd.Flags().StringVarP(&flags.Out, "out", "o", "", "output .avif path")
	cmd.Flags().Uint64Var(&limits.MaxStoredLen, "max-stored", 0, "maximum input size on disk (0 = default)")
	cmd.Flags().Uint64Var(&limits.MaxDecodedLen, "max-decoded", 0, "maximum input size after decompression (0 = default)")

	return cmd
}

// applyFlags copies every flag the user set onto job.
func applyFlags(cmd *cobra.Command, job, flags *Job) {
	set := cmd.Flags().Changed
	if set("color") {
		job.Color = flags.Color
	}
	if set("alpha") {
		job.Alpha = flags.Alpha
	}
	if set("width") {
		job.Width = flags.Width
	}
	if set("height") {
		job.Height = flags.Height
	}
	if set("depth") {
		job.Depth = flags.Depth
	}
	if set("premultiplied") {
		job.Premultiplied = flags.Premultiplied
	}
	if set("out") {
		job.Out = flags.Out
	}
}

func runMux(cmd *cobra.Command, log *logrus.Logger, job *Job, limits bitstream.Limits) error {
	start := time.Now()

	color, comp, err := bitstream.ReadFile(job.Color, limits)
	if err != nil {
		return fmt.Errorf("read color: %w", err)
	}
	log.WithFields(logrus.Fields{
		"path":        job.Color,
		"compression": comp.String(),
		"color_bytes": len(color),
	}).Debug("Loaded color bitstream")

	var alpha []byte
	if job.Alpha != "" {
		alpha, comp, err = bitstream.ReadFile(job.Alpha, limits)
		if err != nil {
			return fmt.Errorf("read alpha: %w", err)
		}
		log.WithFields(logrus.Fields{
			"path":        job.Alpha,
			"compression": comp.String(),
			"alpha_bytes": len(alpha),
		}).Debug("Loaded alpha bitstream")
	}

	var opts []avifmux.Option
	if job.Premultiplied {
		opts = append(opts, avifmux.WithPremultipliedAlpha(true))
	}

	n, err := writeOutput(cmd.OutOrStdout(), job.Out, func(w io.Writer) error {
		return avifmux.Serialize(w, color, alpha, job.Width, job.Height, job.Depth, opts...)
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"color_bytes":   len(color),
		"alpha_bytes":   len(alpha),
		"width":         job.Width,
		"height":        job.Height,
		"depth":         job.Depth,
		"premultiplied": job.Premultiplied,
		"out":           job.Out,
		"size":          n,
		"duration":      time.Since(start).String(),
	}).Info("Wrote AVIF file")
	return nil
}

// writeOutput runs write against path, or against stdout when path is "-".
// A partially written file is removed.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) (int64, error) {
	if path == "-" {
		cw := &countingWriter{w: stdout}
		err := write(cw)
		return cw.n, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	cw := &countingWriter{w: f}
	if err := write(cw); err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
