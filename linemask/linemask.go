// Package linemask records the spectral line masks detected at each
// baseline fitting iteration.
package linemask

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/radio-astro/casa-sub011/datatable"
)

// Result is the mask detected for one row at one iteration
type Result struct {
	Row  int
	Mask datatable.MaskList
}

// Update stores mask as the line mask of row.
// At iteration 0 the mask is stored and NOCHANGE unset. Later iterations set
// NOCHANGE to the first iteration at which the mask stopped changing, and reset
// it whenever the mask differs from the stored one.
func Update(dt *datatable.DataTable, row, iteration int, mask datatable.MaskList) error {
	if iteration < 0 {
		return fmt.Errorf("invalid iteration %d", iteration)
	}

	if iteration > 0 {
		stored, err := datatable.Cell[datatable.MaskList](dt, datatable.ColMaskList, row)
		if err != nil {
			return err
		}
		nochange, err := datatable.Cell[datatable.NoChange](dt, datatable.ColNoChange, row)
		if err != nil {
			return err
		}

		if stored.Equal(mask) {
			if !nochange.Set {
				return dt.PutCell(datatable.ColNoChange, row, datatable.NoChangeSince(iteration))
			}
			return nil
		}
	}

	return errors.Join(
		dt.PutCell(datatable.ColMaskList, row, mask),
		dt.PutCell(datatable.ColNMask, row, len(mask)),
		dt.PutCell(datatable.ColNoChange, row, datatable.NoChange{}),
	)
}

// UpdateAll applies the results of one iteration.
// Returns the number of rows whose mask is unchanged.
func UpdateAll(dt *datatable.DataTable, iteration int, results []Result) (int, error) {
	for _, r := range results {
		if err := Update(dt, r.Row, iteration, r.Mask); err != nil {
			return 0, fmt.Errorf("row %d: %w", r.Row, err)
		}
	}

	converged := 0
	for _, r := range results {
		nochange, err := datatable.Cell[datatable.NoChange](dt, datatable.ColNoChange, r.Row)
		if err != nil {
			return 0, err
		}
		if nochange.Set {
			converged++
		}
	}

	slog.Info(fmt.Sprintf("Iteration %d: %d/%d masks unchanged", iteration, converged, len(results)))
	return converged, nil
}
