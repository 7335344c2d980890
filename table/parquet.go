package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/gocarina/gocsv"
)

const (
	// Columns of a persisted store
	DataFile string = "table.parquet"
	// Table-level keywords of a persisted store, one JSON encoded value per line
	KeywordFile string = "keywords.csv"
)

// Keyword values that are persisted with their type
const (
	KeywordInt        string = "int"
	KeywordDouble     string = "float64"
	KeywordString     string = "string"
	KeywordBool       string = "bool"
	KeywordIntList    string = "[]int"
	KeywordDoubleList string = "[]float64"
	KeywordStringList string = "[]string"
)

// KeywordCodec converts keyword values to and from their persisted text form
type KeywordCodec interface {
	Encode(name string, value any) (string, error)
	Decode(name, text string) (any, error)
}

// JSONCodec stores keywords as plain JSON.
// Values without a KeywordType are decoded to the types produced by encoding/json.
type JSONCodec struct{}

func (JSONCodec) Encode(_ string, value any) (string, error) {
	b, err := json.Marshal(value)
	return string(b), err
}

func (JSONCodec) Decode(_ string, text string) (any, error) {
	var value any
	err := json.Unmarshal([]byte(text), &value)
	return value, err
}

type keywordRow struct {
	Name  string `csv:"name"`
	Type  string `csv:"type"`
	Value string `csv:"value"`
}

// KeywordType returns the persisted type of a keyword value,
// or an empty string when only the codec knows how to restore it
func KeywordType(value any) string {
	switch value.(type) {
	case int:
		return KeywordInt
	case float64:
		return KeywordDouble
	case string:
		return KeywordString
	case bool:
		return KeywordBool
	case []int:
		return KeywordIntList
	case []float64:
		return KeywordDoubleList
	case []string:
		return KeywordStringList
	}
	return ""
}

func decodeTyped(kind, text string) (any, error) {
	switch kind {
	case KeywordInt:
		return unmarshal[int](text)
	case KeywordDouble:
		return unmarshal[float64](text)
	case KeywordString:
		return unmarshal[string](text)
	case KeywordBool:
		return unmarshal[bool](text)
	case KeywordIntList:
		return unmarshal[[]int](text)
	case KeywordDoubleList:
		return unmarshal[[]float64](text)
	case KeywordStringList:
		return unmarshal[[]string](text)
	}
	return nil, fmt.Errorf("%w: keyword type %q", ErrWrongType, kind)
}

func unmarshal[T any](text string) (any, error) {
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Exists reports whether dir holds a persisted store
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DataFile))
	return err == nil
}

// Save writes the columns and keywords of s into dir, creating it if needed.
// A nil codec defaults to JSONCodec.
func Save(s Store, dir string, codec KeywordCodec) error {
	if codec == nil {
		codec = JSONCodec{}
	}

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	if err := writeParquet(s, filepath.Join(dir, DataFile)); err != nil {
		return fmt.Errorf("could not save %s: %w", s.Name(), err)
	}

	if err := writeKeywords(s, filepath.Join(dir, KeywordFile), codec); err != nil {
		return fmt.Errorf("could not save keywords of %s: %w", s.Name(), err)
	}

	slog.Debug(fmt.Sprintf("Saved %d rows of %s to %s", s.NRows(), s.Name(), dir))
	return nil
}

// Load reads a store previously written by Save.
// Every column in schema must be present in the file, extra columns are ignored.
func Load(dir, name string, schema Schema, codec KeywordCodec) (*Memory, error) {
	if codec == nil {
		codec = JSONCodec{}
	}

	tbl, err := readParquet(filepath.Join(dir, DataFile))
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	store, err := NewMemory(name, schema, int(tbl.NumRows()))
	if err != nil {
		return nil, err
	}

	for _, spec := range schema {
		indices := tbl.Schema().FieldIndices(spec.Name)
		if len(indices) == 0 {
			return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, spec.Name, dir)
		}

		values, err := readColumn(tbl.Column(indices[0]), spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("could not read column %q from %s: %w", spec.Name, dir, err)
		}

		if err := store.PutCol(spec.Name, values, 0, -1, 1); err != nil {
			return nil, err
		}
	}

	if err := readKeywords(store, filepath.Join(dir, KeywordFile), codec); err != nil {
		return nil, err
	}

	slog.Debug(fmt.Sprintf("Loaded %d rows of %s from %s", store.NRows(), name, dir))
	return store, nil
}

func writeParquet(s Store, filename string) error {
	schema := s.Schema()
	arrowSchema := schema.arrowSchema()

	builder := array.NewRecordBuilder(memory.NewGoAllocator(), arrowSchema)
	defer builder.Release()

	for i, spec := range schema {
		values, err := s.GetCol(spec.Name, 0, -1, 1)
		if err != nil {
			return err
		}
		if err := appendColumn(builder.Field(i), spec.Kind, values); err != nil {
			return fmt.Errorf("column %q: %w", spec.Name, err)
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(arrowSchema, f, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	if err := writer.Write(record); err != nil {
		return errors.Join(fmt.Errorf("failed to write parquet record: %w", err), writer.Close())
	}
	return writer.Close()
}

func appendColumn(b array.Builder, kind Kind, values any) error {
	switch kind {
	case Int:
		ib := b.(*array.Int64Builder)
		for _, v := range values.([]int) {
			ib.Append(int64(v))
		}
	case Double:
		fb := b.(*array.Float64Builder)
		fb.AppendValues(values.([]float64), nil)
	case String:
		sb := b.(*array.StringBuilder)
		sb.AppendValues(values.([]string), nil)
	case IntVector:
		lb := b.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Int64Builder)
		for _, vec := range values.([][]int) {
			lb.Append(true)
			for _, v := range vec {
				vb.Append(int64(v))
			}
		}
	case DoubleVector:
		lb := b.(*array.ListBuilder)
		vb := lb.ValueBuilder().(*array.Float64Builder)
		for _, vec := range values.([][]float64) {
			lb.Append(true)
			vb.AppendValues(vec, nil)
		}
	case PairList:
		lb := b.(*array.ListBuilder)
		pb := lb.ValueBuilder().(*array.ListBuilder)
		vb := pb.ValueBuilder().(*array.Int64Builder)
		for _, pairs := range values.([][][2]int) {
			lb.Append(true)
			for _, p := range pairs {
				pb.Append(true)
				vb.Append(int64(p[0]))
				vb.Append(int64(p[1]))
			}
		}
	default:
		return fmt.Errorf("unsupported kind %v", kind)
	}
	return nil
}

func readParquet(filename string) (arrow.Table, error) {
	pf, err := file.OpenParquetFile(filename, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	tbl, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	return tbl, nil
}

func readColumn(col *arrow.Column, kind Kind) (any, error) {
	chunks := col.Data().Chunks()

	switch kind {
	case Int:
		out := make([]int, 0, col.Len())
		for _, chunk := range chunks {
			arr, ok := chunk.(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("%w: stored as %v", ErrWrongType, chunk.DataType())
			}
			for i := 0; i < arr.Len(); i++ {
				out = append(out, int(arr.Value(i)))
			}
		}
		return out, nil

	case Double:
		out := make([]float64, 0, col.Len())
		for _, chunk := range chunks {
			arr, ok := chunk.(*array.Float64)
			if !ok {
				return nil, fmt.Errorf("%w: stored as %v", ErrWrongType, chunk.DataType())
			}
			out = append(out, arr.Float64Values()...)
		}
		return out, nil

	case String:
		out := make([]string, 0, col.Len())
		for _, chunk := range chunks {
			arr, ok := chunk.(*array.String)
			if !ok {
				return nil, fmt.Errorf("%w: stored as %v", ErrWrongType, chunk.DataType())
			}
			for i := 0; i < arr.Len(); i++ {
				out = append(out, arr.Value(i))
			}
		}
		return out, nil

	case IntVector:
		out := make([][]int, 0, col.Len())
		for _, chunk := range chunks {
			list, values, err := listOf[*array.Int64](chunk)
			if err != nil {
				return nil, err
			}
			for i := 0; i < list.Len(); i++ {
				start, end := list.ValueOffsets(i)
				vec := make([]int, 0, end-start)
				for j := start; j < end; j++ {
					vec = append(vec, int(values.Value(int(j))))
				}
				out = append(out, vec)
			}
		}
		return out, nil

	case DoubleVector:
		out := make([][]float64, 0, col.Len())
		for _, chunk := range chunks {
			list, values, err := listOf[*array.Float64](chunk)
			if err != nil {
				return nil, err
			}
			for i := 0; i < list.Len(); i++ {
				start, end := list.ValueOffsets(i)
				vec := make([]float64, 0, end-start)
				for j := start; j < end; j++ {
					vec = append(vec, values.Value(int(j)))
				}
				out = append(out, vec)
			}
		}
		return out, nil

	case PairList:
		out := make([][][2]int, 0, col.Len())
		for _, chunk := range chunks {
			list, pairs, err := listOf[*array.List](chunk)
			if err != nil {
				return nil, err
			}
			values, ok := pairs.ListValues().(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("%w: stored as %v", ErrWrongType, chunk.DataType())
			}
			for i := 0; i < list.Len(); i++ {
				start, end := list.ValueOffsets(i)
				cell := make([][2]int, 0, end-start)
				for j := start; j < end; j++ {
					pstart, pend := pairs.ValueOffsets(int(j))
					if pend-pstart != 2 {
						return nil, fmt.Errorf("%w: pair of length %d", ErrWrongType, pend-pstart)
					}
					cell = append(cell, [2]int{int(values.Value(int(pstart))), int(values.Value(int(pstart + 1)))})
				}
				out = append(out, cell)
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("unsupported kind %v", kind)
}

// Splits a list chunk into the list itself and its typed child values
func listOf[T arrow.Array](chunk arrow.Array) (*array.List, T, error) {
	var values T
	list, ok := chunk.(*array.List)
	if !ok {
		return nil, values, fmt.Errorf("%w: stored as %v", ErrWrongType, chunk.DataType())
	}
	values, ok = list.ListValues().(T)
	if !ok {
		return nil, values, fmt.Errorf("%w: list of %v", ErrWrongType, list.ListValues().DataType())
	}
	return list, values, nil
}

func writeKeywords(s Store, filename string, codec KeywordCodec) error {
	names := s.KeywordNames()
	rows := make([]*keywordRow, 0, len(names))
	for _, name := range names {
		value, err := s.GetKeyword(name)
		if err != nil {
			return err
		}
		text, err := codec.Encode(name, value)
		if err != nil {
			return fmt.Errorf("keyword %q: %w", name, err)
		}
		rows = append(rows, &keywordRow{Name: name, Type: KeywordType(value), Value: text})
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = gocsv.MarshalFile(&rows, f)
	if closeErr := f.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

func readKeywords(s Store, filename string, codec KeywordCodec) error {
	f, err := os.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var rows []*keywordRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		// An empty keyword file only carries the header
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return err
	}

	for _, row := range rows {
		var value any
		if row.Type != "" {
			value, err = decodeTyped(row.Type, row.Value)
		} else {
			value, err = codec.Decode(row.Name, row.Value)
		}
		if err != nil {
			return fmt.Errorf("keyword %q: %w", row.Name, err)
		}
		if err := s.PutKeyword(row.Name, value); err != nil {
			return err
		}
	}
	return nil
}
