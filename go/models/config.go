package models

import (
	"io"
	"os"
	"time"
)

type Config struct {
	Color   bool
	Verbose bool

	// pacing
	TargetKHz    float64
	Slot         time.Duration
	Unthrottled  bool
	SamplePeriod time.Duration

	ShutdownTimeout time.Duration
	LoadAddr        uint64
	Tracefile       string
	TickInterval    int64

	// guest output, defaults to stdout
	Output io.Writer
	// guest input, reads return -1 when nil
	Input io.Reader
	// diagnostics, defaults to stderr
	LogOutput io.Writer

	logger Logger
}

func NewConfig() *Config {
	return &Config{
		TargetKHz:       1000,
		Slot:            10 * time.Millisecond,
		SamplePeriod:    time.Second,
		ShutdownTimeout: 10 * time.Second,
		LoadAddr:        0x8000,
	}
}

func (c *Config) Init() *Config {
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.LogOutput == nil {
		c.LogOutput = os.Stderr
	}
	if c.Slot == 0 {
		c.Slot = 10 * time.Millisecond
	}
	if c.SamplePeriod == 0 {
		c.SamplePeriod = time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Logger returns the logger for this config, building one on first use.
func (c *Config) Logger() Logger {
	if c.logger == nil {
		c.Init()
		c.logger = NewLogger(c.LogOutput, c.Color, c.Verbose)
	}
	return c.logger
}

func (c *Config) SetLogger(l Logger) {
	c.logger = l
}
