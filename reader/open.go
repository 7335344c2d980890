package reader

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Open picks the source implementation from the file extension
func Open(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".sdfits", ".fit":
		src, err := OpenSDFITS(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	case ".csv":
		src, err := OpenCSV(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unsupported dataset %s, expected a FITS or CSV file", path)
}
