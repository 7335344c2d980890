package group

import (
	"errors"
	"fmt"

	"github.com/radio-astro/casa-sub011/grouping"
	"github.com/radio-astro/casa-sub011/sd/base"
	"github.com/radio-astro/casa-sub011/utils"
)

type Config struct {
	base.Config
	Tolerance float64 `arg:"--tolerance,required" help:"Position tolerance in degrees"`
	SmallGap  string  `arg:"--small-gap,required" help:"ISO 8601 duration starting a new small time group, e.g. PT1S"`
	LargeGap  string  `arg:"--large-gap,required" help:"ISO 8601 duration starting a new large time group, e.g. PT30S"`
}

func (Config) Description() string {
	return `Compute the position and time groups of a DataTable.
Overwrites POSGRP, TIMEGRP_S, TIMEGRP_L and their keywords.`
}

func (config *Config) grouping() (grouping.Config, error) {
	small, serr := utils.ParseDuration(config.SmallGap)
	large, lerr := utils.ParseDuration(config.LargeGap)
	if err := errors.Join(serr, lerr); err != nil {
		return grouping.Config{}, err
	}
	return grouping.Config{
		PositionTolerance: config.Tolerance,
		SmallGap:          small,
		LargeGap:          large,
		Quiet:             config.Quiet,
	}, nil
}

func (config *Config) Execute() error {
	cfg, err := config.grouping()
	if err != nil {
		return err
	}
	analyser, err := grouping.New(cfg)
	if err != nil {
		return err
	}

	config.SetLogFile("group")

	dt, err := config.Load()
	if err != nil {
		return err
	}
	defer dt.Close()

	if dt.Len() == 0 {
		return fmt.Errorf("%s has no rows", config.Table)
	}
	if err := analyser.Execute(dt); err != nil {
		return err
	}

	// Only the RW store changed
	return dt.ExportData("", true, true)
}
