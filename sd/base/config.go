package base

import (
	"fmt"
	"path/filepath"

	"github.com/radio-astro/casa-sub011/datatable"
	"github.com/radio-astro/casa-sub011/utils"
)

// Arguments shared by every command working on a DataTable
type Config struct {
	Table string `arg:"-t,--table,required" help:"Location of the DataTable"`
	Quiet bool   `arg:"-q" help:"Hide progress bars"`
	Log   bool   `help:"Write the log to <table>_<command>_log.txt instead of stderr"`
}

// Name is used for log files
func (c *Config) Name() string {
	return filepath.Base(filepath.Clean(c.Table))
}

func (c *Config) SetLogFile(procedure string) {
	if c.Log {
		utils.SetLogFile(c.Name(), procedure)
	}
}

// Load imports an existing table
func (c *Config) Load() (*datatable.DataTable, error) {
	if !datatable.Exists(c.Table) {
		return nil, fmt.Errorf("no DataTable at %s", c.Table)
	}
	return datatable.Open(c.Table, false)
}
