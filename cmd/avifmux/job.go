package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job describes one mux operation. Relative input and output paths in a job
// file are taken relative to the working directory.
type Job struct {
	Color         string `yaml:"color"`
	Alpha         string `yaml:"alpha,omitempty"`
	Width         uint32 `yaml:"width"`
	Height        uint32 `yaml:"height"`
	Depth         uint8  `yaml:"depth"`
	Premultiplied bool   `yaml:"premultiplied,omitempty"`
	Out           string `yaml:"out"`
}

// LoadJob reads a job from a YAML file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}

	if job.Depth == 0 {
		job.Depth = 8
	}

	return &job, nil
}

// Validate checks that the job can be muxed.
func (j *Job) Validate() error {
	if j.Color == "" {
		return fmt.Errorf("color is required")
	}
	if j.Out == "" {
		return fmt.Errorf("out is required")
	}
	if j.Width == 0 || j.Height == 0 {
		return fmt.Errorf("width and height must be non-zero, got %dx%d", j.Width, j.Height)
	}
	switch j.Depth {
	case 8, 10, 12:
	default:
		return fmt.Errorf("depth must be 8, 10 or 12, got %d", j.Depth)
	}
	if j.Premultiplied && j.Alpha == "" {
		return fmt.Errorf("premultiplied requires an alpha input")
	}
	return nil
}
