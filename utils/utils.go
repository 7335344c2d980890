package utils

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"

	"github.com/schollz/progressbar/v3"
)

// NewBar returns the progress bar used by every command.
// A silent bar still counts but never renders.
func NewBar(size int, description string, silent bool) *progressbar.ProgressBar {
	if silent {
		return progressbar.DefaultSilent(int64(size), description)
	}
	return progressbar.NewOptions(size,
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Filters elements of a slice by comparing them to the elements of a reference slice.
// formatMsg is an optional format string with a single format argument that can be used
// to add context on why the element may be missing from the reference slice
func FilterSlice[T comparable](slice, reference []T, formatMsg string) []T {
	if slice == nil {
		return reference
	}

	if formatMsg == "" {
		formatMsg = "User input '%v' not present in reference, skipping"
	}

	out := slice[:0]
	for _, s := range slice {
		if !slices.Contains(reference, s) {
			slog.Warn(fmt.Sprintf(formatMsg, s))
			continue
		}
		out = append(out, s)
	}
	return out
}

// SetLogFile redirects the log output of a procedure run on a table
func SetLogFile(tableName, procedure string) {
	filename := fmt.Sprintf("%s_%s_log.txt", tableName, procedure)
	fh, err := os.Create(filename)
	if err != nil {
		slog.Error(fmt.Sprintf("Could not create log '%s': %s", filename, err))
		return
	}
	log.SetOutput(fh)
}
