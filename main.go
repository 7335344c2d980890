package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/radio-astro/casa-sub011/index"
	"github.com/radio-astro/casa-sub011/sd"
)

type CmdArgs struct {
	SD    *sd.Cmd       `arg:"subcommand:sd" help:"Build and process single-dish DataTables"`
	Index *index.Config `arg:"subcommand" help:"Drop or create the catalog indices"`
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// The following env variables are needed:
	//   - push, index: "CATALOG_CONN_STRING"
	// A missing .env file is fine for the other commands
	if err := godotenv.Load(); err != nil {
		slog.Debug(err.Error())
	}

	args := CmdArgs{}
	parser := arg.MustParse(&args)

	switch {
	case args.SD != nil:
		args.SD.Execute(parser)
	case args.Index != nil:
		if err := args.Index.Execute(); err != nil {
			slog.Error(err.Error())
			os.Exit(1)
		}
	default:
		fmt.Println("Error: passing a command is required.")
		fmt.Println()
		parser.WriteHelp(os.Stdout)
	}
}
