package summary

import (
	"os"

	"github.com/radio-astro/casa-sub011/flagsummary"
	"github.com/radio-astro/casa-sub011/sd/base"
)

type Config struct {
	base.Config
}

func (Config) Description() string {
	return "Print the flag summary of a DataTable per antenna, spectral window and polarization"
}

func (config *Config) Execute() error {
	dt, err := config.Load()
	if err != nil {
		return err
	}
	defer dt.Close()

	summaries, err := flagsummary.Compute(dt)
	if err != nil {
		return err
	}
	return flagsummary.Write(os.Stdout, summaries)
}
