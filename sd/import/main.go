package port

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/reader"
	"github.com/radio-astro/casa-sub011/sd/base"
	"github.com/radio-astro/casa-sub011/utils"
)

type Config struct {
	base.Config
	Datasets  []string         `arg:"positional,required" help:"SDFITS (.fits) or CSV (.csv) datasets to import"`
	SrcTypes  []int            `arg:"--srctypes" help:"Source types to keep, ON-source position switch (0) by default"`
	FromTime  *utils.Timestamp `arg:"--from" help:"Import rows only starting from this date-only timestamp"`
	ToTime    *utils.Timestamp `arg:"--to" help:"Import rows only until this date-only timestamp"`
	Overwrite bool             `help:"Replace the table instead of appending to it"`
}

func (Config) Description() string {
	return `Import single-dish datasets into a DataTable.
Datasets already registered in the table are skipped.`
}

func (config *Config) open() (*datatable.DataTable, error) {
	if config.Overwrite {
		return datatable.New()
	}
	return datatable.Open(config.Table, true)
}

func (config *Config) Execute() error {
	config.SetLogFile("import")

	dt, err := config.open()
	if err != nil {
		return err
	}
	defer dt.Close()

	timespan := utils.NewTimespan(config.FromTime, config.ToTime)

	var total int
	for _, path := range config.Datasets {
		n, err := config.importDataset(dt, path, timespan)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total += n
	}

	if err := dt.ExportData(config.Table, false, true); err != nil {
		return err
	}
	msg := fmt.Sprintf("Imported %d rows from %d datasets into %s", total, len(config.Datasets), config.Table)
	if span := timespan.String(); span != "" {
		msg += " (" + span + ")"
	}
	slog.Info(msg)
	return nil
}

func (config *Config) importDataset(dt *datatable.DataTable, path string, timespan utils.TimeSpan) (n int, err error) {
	src, err := reader.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	r := reader.New(src, dt)
	if len(config.SrcTypes) > 0 {
		r.SrcTypes = utils.FilterSlice(config.SrcTypes, reader.SrcTypes, "Unknown source type %v, skipping")
	}
	r.TimeSpan = timespan
	r.Quiet = config.Quiet

	return r.Execute()
}
