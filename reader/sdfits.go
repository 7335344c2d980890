package reader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"
)

// Extension and column names of a single-dish FITS file
const (
	DataExtension   = "SINGLE DISH"
	WindowExtension = "SPECTRAL WINDOW"
)

// SDFITS reads a single-dish FITS dataset.
// The primary header carries SITELONG and SITELAT in degrees. The SINGLE DISH
// table has one line per row and may carry RA/DEC, AZIMUTH/ELEVATIO or both.
type SDFITS struct {
	name string
	file *os.File
	fits *fitsio.File
	data *fitsio.Table
	site Site
}

func OpenSDFITS(path string) (*SDFITS, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fits, err := fitsio.Open(file)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("could not open %s: %w", path, err), file.Close())
	}

	src := &SDFITS{
		name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		file: file,
		fits: fits,
	}

	if src.data, err = src.table(DataExtension); err != nil {
		return nil, errors.Join(err, src.Close())
	}

	header := fits.HDU(0).Header()
	for key, value := range map[string]*float64{"SITELONG": &src.site.Longitude, "SITELAT": &src.site.Latitude} {
		card := header.Get(key)
		if card == nil {
			continue
		}
		if *value, err = asFloat(card.Value); err != nil {
			return nil, errors.Join(fmt.Errorf("%s: %w", key, err), src.Close())
		}
	}
	return src, nil
}

func (s *SDFITS) table(name string) (*fitsio.Table, error) {
	if !s.fits.Has(name) {
		return nil, fmt.Errorf("%s has no %q extension", s.name, name)
	}
	tbl, ok := s.fits.Get(name).(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("%s: extension %q is not a table", s.name, name)
	}
	return tbl, nil
}

func (s *SDFITS) Name() string {
	return s.name
}

func (s *SDFITS) Site() Site {
	return s.site
}

func (s *SDFITS) SpectralWindows() ([]SpectralWindow, error) {
	tbl, err := s.table(WindowExtension)
	if err != nil {
		return nil, err
	}

	var windows []SpectralWindow
	err = scanRows(tbl, 0, tbl.NumRows(), func(row map[string]any) error {
		var w SpectralWindow
		var err error
		if w.ID, err = asInt(row["IF"]); err != nil {
			return err
		}
		if w.NChan, err = asInt(row["NCHAN"]); err != nil {
			return err
		}
		w.Intent, _ = row["INTENT"].(string)
		windows = append(windows, w)
		return nil
	})
	return windows, err
}

func (s *SDFITS) Records() ([]Record, error) {
	records := make([]Record, 0, s.data.NumRows())

	row := 0
	err := scanRows(s.data, 0, s.data.NumRows(), func(cells map[string]any) error {
		rec := Record{Row: row}
		row++

		ints := []struct {
			column string
			dst    *int
		}{
			{"SCAN", &rec.Scan},
			{"IF", &rec.IF},
			{"POL", &rec.Pol},
			{"BEAM", &rec.Beam},
			{"ANTENNA", &rec.Antenna},
			{"SRCTYPE", &rec.SrcType},
			{"FLAGROW", &rec.FlagRow},
		}
		for _, c := range ints {
			v, err := asInt(cells[c.column])
			if err != nil {
				return fmt.Errorf("%s: %w", c.column, err)
			}
			*c.dst = v
		}

		floats := []struct {
			column string
			dst    *float64
		}{
			{"TIME", &rec.Time},
			{"EXPOSURE", &rec.Exposure},
			{"TSYS", &rec.Tsys},
		}
		for _, c := range floats {
			v, err := asFloat(cells[c.column])
			if err != nil {
				return fmt.Errorf("%s: %w", c.column, err)
			}
			*c.dst = v
		}

		rec.Target = strings.Trim(fmt.Sprint(cells["OBJECT"]), " \x00")
		records = append(records, rec)
		return nil
	})
	return records, err
}

// Direction reads a single line of the data table
func (s *SDFITS) Direction(row int) (Direction, error) {
	var d Direction
	err := scanRows(s.data, int64(row), int64(row)+1, func(cells map[string]any) error {
		var err error
		if hasColumns(cells, "RA", "DEC") {
			if d.RA, err = asFloat(cells["RA"]); err != nil {
				return err
			}
			if d.Dec, err = asFloat(cells["DEC"]); err != nil {
				return err
			}
			d.HasEquatorial = true
		}
		if hasColumns(cells, "AZIMUTH", "ELEVATIO") {
			if d.Az, err = asFloat(cells["AZIMUTH"]); err != nil {
				return err
			}
			if d.El, err = asFloat(cells["ELEVATIO"]); err != nil {
				return err
			}
			d.HasHorizontal = true
		}
		return nil
	})
	return d, err
}

func (s *SDFITS) Close() error {
	return errors.Join(s.fits.Close(), s.file.Close())
}

func scanRows(tbl *fitsio.Table, beg, end int64, fn func(map[string]any) error) error {
	rows, err := tbl.Read(beg, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		cells := make(map[string]any)
		if err := rows.Scan(&cells); err != nil {
			return err
		}
		if err := fn(cells); err != nil {
			return err
		}
	}
	return rows.Err()
}

func hasColumns(cells map[string]any, names ...string) bool {
	for _, name := range names {
		if _, ok := cells[name]; !ok {
			return false
		}
	}
	return true
}

func asInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint8:
		return int(x), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if i, err := asInt(v); err == nil {
		return float64(i), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
