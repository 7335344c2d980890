package datatable

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/radio-astro/casa-sub011/table"
)

// DataTable holds one row per spectral record.
// Row i of the RO store and row i of the RW store always describe the same record.
type DataTable struct {
	// Persistent location, empty until the table is opened from or exported to disk
	name    string
	tmpName string

	ro table.Store
	rw table.Store

	accessors [numColumns]Accessor

	// Location the RO store currently mirrors, cleared when rows are added
	plainRO    string
	writableRO bool
}

// New creates an empty in-memory table with a process-unique name
func New() (*DataTable, error) {
	dt := &DataTable{tmpName: "datatable_" + uuid.NewString()}

	ro, err := table.NewMemory(dt.tmpName+"_RO", roSchema, 0)
	if err != nil {
		return nil, err
	}
	rw, err := table.NewMemory(dt.tmpName+"_RW", rwSchema, 0)
	if err != nil {
		return nil, err
	}

	dt.ro, dt.rw = ro, rw
	dt.bind(false)
	return dt, nil
}

// Open imports the table persisted at name, or creates an empty table that
// will be exported to name if nothing exists there yet.
// RO columns stay read-only unless writableRO is set.
func Open(name string, writableRO bool) (*DataTable, error) {
	dt, err := New()
	if err != nil {
		return nil, err
	}
	dt.writableRO = writableRO

	if !Exists(name) {
		slog.Info("No table at " + name + ", starting from an empty table")
		dt.name = name
		return dt, nil
	}

	if err := dt.ImportData(name, false); err != nil {
		return nil, err
	}
	return dt, nil
}

// Exists reports whether a persisted table is present at name
func Exists(name string) bool {
	return table.Exists(filepath.Join(name, RW.String()))
}

func (dt *DataTable) bind(roReadOnly bool) {
	for _, col := range Columns() {
		if col.Descriptor().Side == RO {
			dt.accessors[col] = newAccessor(dt.ro, col, roReadOnly)
		} else {
			dt.accessors[col] = newAccessor(dt.rw, col, false)
		}
	}
}

// Name returns the persistent location, or the temporary name of an unsaved table
func (dt *DataTable) Name() string {
	if dt.name != "" {
		return dt.name
	}
	return dt.tmpName
}

// Len is the number of rows
func (dt *DataTable) Len() int {
	if dt.ro == nil {
		return 0
	}
	return dt.ro.NRows()
}

// AddRows appends n rows to both stores.
// New RW rows start as unflagged with no mask, unset NOCHANGE and no groups.
func (dt *DataTable) AddRows(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: cannot add %d rows", table.ErrRowOutOfRange, n)
	}
	if n == 0 {
		return nil
	}

	start := dt.Len()
	if err := dt.ro.AddRows(n); err != nil {
		return err
	}
	if err := dt.rw.AddRows(n); err != nil {
		return err
	}
	dt.plainRO = ""

	return dt.initRows(start, n)
}

func (dt *DataTable) initRows(start, n int) error {
	stats := make([][]float64, n)
	flags := make([][]int, n)
	permanent := make([][]int, n)
	masks := make([]MaskList, n)
	nochange := make([]NoChange, n)
	ones := make([]int, n)
	unset := make([]int, n)

	for i := 0; i < n; i++ {
		stats[i] = filled(NumStatistics, -1.0)
		flags[i] = filled(NumStatistics, Valid)
		permanent[i] = filled(NumPermanentFlags, Valid)
		ones[i] = Valid
		unset[i] = -1
	}

	return errors.Join(
		dt.accessors[ColStatistics].PutCol(stats, start, n, 1),
		dt.accessors[ColFlag].PutCol(flags, start, n, 1),
		dt.accessors[ColFlagPermanent].PutCol(permanent, start, n, 1),
		dt.accessors[ColFlagSummary].PutCol(ones, start, n, 1),
		dt.accessors[ColMaskList].PutCol(masks, start, n, 1),
		dt.accessors[ColNoChange].PutCol(nochange, start, n, 1),
		dt.accessors[ColPosGrp].PutCol(unset, start, n, 1),
		dt.accessors[ColTimeGrpS].PutCol(unset, start, n, 1),
		dt.accessors[ColTimeGrpL].PutCol(unset, start, n, 1),
	)
}

func filled[T any](n int, v T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func (dt *DataTable) accessor(col Column) (Accessor, error) {
	if !col.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownColumn, col)
	}
	return dt.accessors[col], nil
}

// Accessor returns the accessor bound to a column
func (dt *DataTable) Accessor(col Column) (Accessor, error) {
	return dt.accessor(col)
}

// GetCol reads n rows (n = -1 to the end) starting at start with the given stride
func (dt *DataTable) GetCol(col Column, start, n, stride int) (any, error) {
	a, err := dt.accessor(col)
	if err != nil {
		return nil, err
	}
	return a.GetCol(start, n, stride)
}

func (dt *DataTable) PutCol(col Column, values any, start, n, stride int) error {
	a, err := dt.accessor(col)
	if err != nil {
		return err
	}
	return a.PutCol(values, start, n, stride)
}

func (dt *DataTable) GetCell(col Column, row int) (any, error) {
	a, err := dt.accessor(col)
	if err != nil {
		return nil, err
	}
	return a.GetCell(row)
}

func (dt *DataTable) PutCell(col Column, row int, value any) error {
	a, err := dt.accessor(col)
	if err != nil {
		return err
	}
	return a.PutCell(row, value)
}

// Cell reads a single cell as its logical Go type
func Cell[T any](dt *DataTable, col Column, row int) (T, error) {
	var zero T
	v, err := dt.GetCell(col, row)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %v holds %T", ErrTypeMismatch, col, v)
	}
	return typed, nil
}

// Col reads a whole column as a slice of its logical Go type
func Col[T any](dt *DataTable, col Column) ([]T, error) {
	v, err := dt.GetCol(col, 0, -1, 1)
	if err != nil {
		return nil, err
	}
	typed, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("%w: %v holds %T", ErrTypeMismatch, col, v)
	}
	return typed, nil
}

// ColumnNames returns the persisted names of all columns
func (dt *DataTable) ColumnNames() []string {
	names := make([]string, 0, numColumns)
	for _, col := range Columns() {
		names = append(names, col.String())
	}
	return names
}

// Keywords live in the RW store
func (dt *DataTable) HasKeyword(name string) bool {
	return slices.Contains(dt.rw.KeywordNames(), name)
}

func (dt *DataTable) GetKeyword(name string) (any, error) {
	value, err := dt.rw.GetKeyword(name)
	if err != nil {
		return nil, err
	}
	return cloneGroups(value), nil
}

// PutKeyword stores a copy of value. Group keywords take their typed maps,
// any other keyword a value with a table.KeywordType.
func (dt *DataTable) PutKeyword(name string, value any) error {
	if err := checkKeyword(name, value); err != nil {
		return err
	}
	return dt.rw.PutKeyword(name, cloneGroups(value))
}

func (dt *DataTable) KeywordNames() []string {
	return dt.rw.KeywordNames()
}

// GetRowIndexSimple returns the rows where col equals value
func (dt *DataTable) GetRowIndexSimple(col Column, value any) ([]int, error) {
	values, err := dt.GetCol(col, 0, -1, 1)
	if err != nil {
		return nil, err
	}

	target := value
	if col.Descriptor().Codec == Generic {
		if target, err = coerceCell(col.Descriptor().Kind, value); err != nil {
			return nil, err
		}
	}

	cells := reflect.ValueOf(values)
	rows := []int{}
	for i := 0; i < cells.Len(); i++ {
		if reflect.DeepEqual(cells.Index(i).Interface(), target) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

// GetRowIndex returns the rows of one antenna and spectral window.
// Pass AnyPol to select every polarization.
func (dt *DataTable) GetRowIndex(antenna, ifno, pol int) ([]int, error) {
	ants, err := Col[int](dt, ColAntenna)
	if err != nil {
		return nil, err
	}
	ifs, err := Col[int](dt, ColIF)
	if err != nil {
		return nil, err
	}
	pols, err := Col[int](dt, ColPol)
	if err != nil {
		return nil, err
	}

	rows := []int{}
	for i := range ants {
		if ants[i] != antenna || ifs[i] != ifno {
			continue
		}
		if pol != AnyPol && pols[i] != pol {
			continue
		}
		rows = append(rows, i)
	}
	return rows, nil
}

// ImportData loads the table persisted at name.
// The RW store is always loaded. The RO store is loaded unless minimal is set
// and it already mirrors name.
func (dt *DataTable) ImportData(name string, minimal bool) error {
	rw, err := table.Load(filepath.Join(name, RW.String()), dt.tmpName+"_RW", rwSchema, keywordCodec{})
	if err != nil {
		return err
	}

	ro := dt.ro
	loadRO := !minimal || name != dt.plainRO
	if loadRO {
		if ro, err = table.Load(filepath.Join(name, RO.String()), dt.tmpName+"_RO", roSchema, keywordCodec{}); err != nil {
			return err
		}
	}

	if ro.NRows() != rw.NRows() {
		return fmt.Errorf("%w: %s has %d RO and %d RW rows", ErrMisaligned, name, ro.NRows(), rw.NRows())
	}

	if loadRO && dt.ro != nil {
		dt.ro.Close()
	}
	if dt.rw != nil {
		dt.rw.Close()
	}
	dt.ro, dt.rw = ro, rw
	dt.name = name
	dt.plainRO = name
	dt.bind(!dt.writableRO)

	slog.Info(fmt.Sprintf("Imported %d rows from %s", dt.Len(), name))
	return nil
}

// ExportData persists the table at name.
// An empty name exports to the table's own location, overwriting it.
// The RW store is always written. The RO store is written unless minimal is set
// and the target already holds the same RO store.
func (dt *DataTable) ExportData(name string, minimal, overwrite bool) error {
	if name == "" {
		if dt.name == "" {
			return ErrNoLocation
		}
		name = dt.name
		overwrite = true
	}

	if _, err := os.Stat(name); err == nil && !overwrite {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	if err := os.MkdirAll(name, os.ModePerm); err != nil {
		return err
	}

	if err := saveStore(dt.rw, name, RW); err != nil {
		return err
	}

	roDir := filepath.Join(name, RO.String())
	if !minimal || !table.Exists(roDir) || dt.plainRO != name {
		if err := saveStore(dt.ro, name, RO); err != nil {
			return err
		}
	}

	dt.name = name
	dt.plainRO = name

	slog.Info(fmt.Sprintf("Exported %d rows to %s", dt.Len(), name))
	return nil
}

// Writes one store next to its final location and swaps it in
func saveStore(s table.Store, name string, side Side) error {
	final := filepath.Join(name, side.String())
	tmp := final + "." + uuid.NewString()

	if err := table.Save(s, tmp, keywordCodec{}); err != nil {
		return errors.Join(err, os.RemoveAll(tmp))
	}
	if err := os.RemoveAll(final); err != nil {
		return errors.Join(err, os.RemoveAll(tmp))
	}
	return os.Rename(tmp, final)
}

func (dt *DataTable) Close() error {
	var err error
	if dt.ro != nil {
		err = errors.Join(err, dt.ro.Close())
	}
	if dt.rw != nil {
		err = errors.Join(err, dt.rw.Close())
	}
	return err
}
