package sd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/radio-astro/casa-sub011/sd/dump"
	"github.com/radio-astro/casa-sub011/sd/group"
	port "github.com/radio-astro/casa-sub011/sd/import"
	"github.com/radio-astro/casa-sub011/sd/push"
	"github.com/radio-astro/casa-sub011/sd/summary"
)

type Cmd struct {
	Import  *port.Config    `arg:"subcommand" help:"Import SDFITS or CSV datasets into a DataTable"`
	Group   *group.Config   `arg:"subcommand" help:"Compute position and time groups"`
	Dump    *dump.Config    `arg:"subcommand" help:"Dump a DataTable to CSV"`
	Summary *summary.Config `arg:"subcommand" help:"Print the flag summary of a DataTable"`
	Push    *push.Config    `arg:"subcommand" help:"Publish a DataTable to the catalog"`
}

func (c *Cmd) Execute(parser *arg.Parser) {
	var err error
	switch {
	case c.Import != nil:
		err = c.Import.Execute()
	case c.Group != nil:
		err = c.Group.Execute()
	case c.Dump != nil:
		err = c.Dump.Execute()
	case c.Summary != nil:
		err = c.Summary.Execute()
	case c.Push != nil:
		err = c.Push.Execute()
	default:
		fmt.Println("Error: passing a subcommand is required.")
		fmt.Println()
		parser.WriteHelpForSubcommand(os.Stdout, "sd")
		return
	}

	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
