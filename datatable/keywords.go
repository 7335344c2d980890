package datatable

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/radio-astro/casa-sub011/table"
)

// Keyword names
const (
	KwFilenames   = "FILENAMES"
	KwPosGrpRep   = "POSGRP_REP"
	KwPosGrpList  = "POSGRP_LIST"
	KwTimeGrpList = "TIMEGRP_LIST"
	KwTimeGapS    = "TIMEGAP_S"
	KwTimeGapL    = "TIMEGAP_L"
)

// GroupKey selects the rows of one antenna, spectral window and polarization
type GroupKey struct {
	Antenna int
	Spw     int
	Pol     int
}

func (k GroupKey) String() string {
	return fmt.Sprintf("ant %d spw %d pol %d", k.Antenna, k.Spw, k.Pol)
}

// Ids of the small and large time groups of one GroupKey
type TimeGroupIDs struct {
	Small []int `json:"small"`
	Large []int `json:"large"`
}

// Filenames returns the registered source datasets in registration order
func (dt *DataTable) Filenames() ([]string, error) {
	if !dt.HasKeyword(KwFilenames) {
		return nil, nil
	}
	v, err := dt.GetKeyword(KwFilenames)
	if err != nil {
		return nil, err
	}
	names, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("%w: keyword %s holds %T", ErrTypeMismatch, KwFilenames, v)
	}
	return names, nil
}

// AddFilename registers a dataset and returns its index in FILENAMES.
// added is false when the name was already registered.
func (dt *DataTable) AddFilename(name string) (index int, added bool, err error) {
	names, err := dt.Filenames()
	if err != nil {
		return 0, false, err
	}
	if i := slices.Index(names, name); i >= 0 {
		return i, false, nil
	}
	names = append(names, name)
	return len(names) - 1, true, dt.PutKeyword(KwFilenames, names)
}

// PosGroups returns POSGRP_REP (group id -> representative row index)
// and POSGRP_LIST (key -> group ids)
func (dt *DataTable) PosGroups() (map[int]int, map[GroupKey][]int, error) {
	rep, err := typedKeyword[map[int]int](dt, KwPosGrpRep)
	if err != nil {
		return nil, nil, err
	}
	list, err := typedKeyword[map[GroupKey][]int](dt, KwPosGrpList)
	if err != nil {
		return nil, nil, err
	}
	return rep, list, nil
}

func (dt *DataTable) SetPosGroups(rep map[int]int, list map[GroupKey][]int) error {
	return errors.Join(dt.PutKeyword(KwPosGrpRep, rep), dt.PutKeyword(KwPosGrpList, list))
}

func (dt *DataTable) TimeGroups() (map[GroupKey]TimeGroupIDs, error) {
	return typedKeyword[map[GroupKey]TimeGroupIDs](dt, KwTimeGrpList)
}

func (dt *DataTable) SetTimeGroups(list map[GroupKey]TimeGroupIDs) error {
	return dt.PutKeyword(KwTimeGrpList, list)
}

// TimeGaps returns the row indices starting a new small and large time group
func (dt *DataTable) TimeGaps() (small, large map[GroupKey][]int, err error) {
	small, err = typedKeyword[map[GroupKey][]int](dt, KwTimeGapS)
	if err != nil {
		return nil, nil, err
	}
	large, err = typedKeyword[map[GroupKey][]int](dt, KwTimeGapL)
	if err != nil {
		return nil, nil, err
	}
	return small, large, nil
}

func (dt *DataTable) SetTimeGaps(small, large map[GroupKey][]int) error {
	return errors.Join(dt.PutKeyword(KwTimeGapS, small), dt.PutKeyword(KwTimeGapL, large))
}

func checkKeyword(name string, value any) error {
	var ok bool
	switch name {
	case KwFilenames:
		_, ok = value.([]string)
	case KwPosGrpRep:
		_, ok = value.(map[int]int)
	case KwPosGrpList, KwTimeGapS, KwTimeGapL:
		_, ok = value.(map[GroupKey][]int)
	case KwTimeGrpList:
		_, ok = value.(map[GroupKey]TimeGroupIDs)
	default:
		ok = table.KeywordType(value) != ""
	}
	if !ok {
		return fmt.Errorf("%w: keyword %s cannot hold %T", ErrTypeMismatch, name, value)
	}
	return nil
}

func cloneGroups(value any) any {
	switch v := value.(type) {
	case map[int]int:
		return maps.Clone(v)
	case map[GroupKey][]int:
		out := make(map[GroupKey][]int, len(v))
		for k, ids := range v {
			out[k] = slices.Clone(ids)
		}
		return out
	case map[GroupKey]TimeGroupIDs:
		out := make(map[GroupKey]TimeGroupIDs, len(v))
		for k, ids := range v {
			out[k] = TimeGroupIDs{Small: slices.Clone(ids.Small), Large: slices.Clone(ids.Large)}
		}
		return out
	}
	return value
}

func typedKeyword[T any](dt *DataTable, name string) (T, error) {
	var zero T
	v, err := dt.GetKeyword(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: keyword %s holds %T", ErrTypeMismatch, name, v)
	}
	return typed, nil
}

// Persisted group keywords are nested by stringified antenna, spw and pol
type nested[V any] map[string]map[string]map[string]V

func nest[V any](m map[GroupKey]V) nested[V] {
	out := make(nested[V])
	for k, v := range m {
		ant, spw, pol := strconv.Itoa(k.Antenna), strconv.Itoa(k.Spw), strconv.Itoa(k.Pol)
		if out[ant] == nil {
			out[ant] = make(map[string]map[string]V)
		}
		if out[ant][spw] == nil {
			out[ant][spw] = make(map[string]V)
		}
		out[ant][spw][pol] = v
	}
	return out
}

func (n nested[V]) flatten() (map[GroupKey]V, error) {
	out := make(map[GroupKey]V)
	for ant, spws := range n {
		a, err := strconv.Atoi(ant)
		if err != nil {
			return nil, err
		}
		for spw, pols := range spws {
			s, err := strconv.Atoi(spw)
			if err != nil {
				return nil, err
			}
			for pol, v := range pols {
				p, err := strconv.Atoi(pol)
				if err != nil {
					return nil, err
				}
				out[GroupKey{a, s, p}] = v
			}
		}
	}
	return out, nil
}

// keywordCodec persists the typed keywords in their legacy JSON layout.
// Other keywords fall back to table.JSONCodec.
type keywordCodec struct{}

func (keywordCodec) Encode(name string, value any) (string, error) {
	var b []byte
	var err error

	switch v := value.(type) {
	case map[GroupKey][]int:
		b, err = json.Marshal(nest(v))
	case map[GroupKey]TimeGroupIDs:
		b, err = json.Marshal(nest(v))
	default:
		return table.JSONCodec{}.Encode(name, value)
	}
	return string(b), err
}

func (keywordCodec) Decode(name, text string) (any, error) {
	switch name {
	case KwFilenames:
		return decodeJSON[[]string](text)
	case KwPosGrpRep:
		return decodeJSON[map[int]int](text)
	case KwPosGrpList, KwTimeGapS, KwTimeGapL:
		return decodeNested[[]int](text)
	case KwTimeGrpList:
		return decodeNested[TimeGroupIDs](text)
	}
	return table.JSONCodec{}.Decode(name, text)
}

func decodeJSON[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

func decodeNested[V any](text string) (map[GroupKey]V, error) {
	n, err := decodeJSON[nested[V]](text)
	if err != nil {
		return nil, err
	}
	return n.flatten()
}
