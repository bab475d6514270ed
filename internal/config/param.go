package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ParamKind tags the value held by a Param.
type ParamKind int

const (
	ParamBool ParamKind = iota
	ParamInt
	ParamFloat
	ParamString
	ParamIntList
)

func (k ParamKind) String() string {
	switch k {
	case ParamBool:
		return "bool"
	case ParamInt:
		return "int"
	case ParamFloat:
		return "float"
	case ParamString:
		return "string"
	case ParamIntList:
		return "int_list"
	default:
		return "unknown"
	}
}

// Param is one heterogeneous device-setup value: bool, int, float, string
// or a list of ints. Consumption sites switch exhaustively on Kind.
type Param struct {
	kind ParamKind
	b    bool
	i    int64
	f    float64
	s    string
	list []int64
}

func (p Param) Kind() ParamKind { return p.kind }

func (p Param) Bool() (bool, bool) {
	return p.b, p.kind == ParamBool
}

func (p Param) Int() (int64, bool) {
	return p.i, p.kind == ParamInt
}

func (p Param) Float() (float64, bool) {
	return p.f, p.kind == ParamFloat
}

func (p Param) Str() (string, bool) {
	return p.s, p.kind == ParamString
}

func (p Param) IntList() ([]int64, bool) {
	return p.list, p.kind == ParamIntList
}

// Describe renders the value for logs and the admin status endpoint.
func (p Param) Describe() string {
	switch p.kind {
	case ParamBool:
		return fmt.Sprintf("%t", p.b)
	case ParamInt:
		return fmt.Sprintf("%d", p.i)
	case ParamFloat:
		return fmt.Sprintf("%g", p.f)
	case ParamString:
		return p.s
	case ParamIntList:
		return fmt.Sprintf("%v", p.list)
	default:
		return "unknown"
	}
}

// LoadParams reads one TOML table of heterogeneous device-setup values.
// A missing table yields an empty map; an unsupported value type is an
// error so a typo in hardware config fails loudly at bring-up.
func LoadParams(path, table string) (map[string]Param, error) {
	var root map[string]toml.Primitive
	md, err := toml.DecodeFile(path, &root)
	if err != nil {
		return nil, fmt.Errorf("params load failed (%s): %w", path, err)
	}
	prim, ok := root[table]
	if !ok {
		return map[string]Param{}, nil
	}
	var entries map[string]toml.Primitive
	if err := md.PrimitiveDecode(prim, &entries); err != nil {
		return nil, fmt.Errorf("params table %q: %w", table, err)
	}

	out := make(map[string]Param, len(entries))
	for key, entry := range entries {
		p, err := decodeParam(md, table, key, entry)
		if err != nil {
			return nil, err
		}
		out[key] = p
	}
	return out, nil
}

func decodeParam(md toml.MetaData, table, key string, entry toml.Primitive) (Param, error) {
	switch md.Type(table, key) {
	case "Bool":
		var v bool
		if err := md.PrimitiveDecode(entry, &v); err != nil {
			return Param{}, fmt.Errorf("param %s.%s: %w", table, key, err)
		}
		return Param{kind: ParamBool, b: v}, nil
	case "Integer":
		var v int64
		if err := md.PrimitiveDecode(entry, &v); err != nil {
			return Param{}, fmt.Errorf("param %s.%s: %w", table, key, err)
		}
		return Param{kind: ParamInt, i: v}, nil
	case "Float":
		var v float64
		if err := md.PrimitiveDecode(entry, &v); err != nil {
			return Param{}, fmt.Errorf("param %s.%s: %w", table, key, err)
		}
		return Param{kind: ParamFloat, f: v}, nil
	case "String":
		var v string
		if err := md.PrimitiveDecode(entry, &v); err != nil {
			return Param{}, fmt.Errorf("param %s.%s: %w", table, key, err)
		}
		return Param{kind: ParamString, s: v}, nil
	case "Array":
		var v []int64
		if err := md.PrimitiveDecode(entry, &v); err != nil {
			return Param{}, fmt.Errorf("param %s.%s: only int arrays are supported: %w", table, key, err)
		}
		return Param{kind: ParamIntList, list: v}, nil
	default:
		return Param{}, fmt.Errorf("param %s.%s: unsupported value type %s", table, key, md.Type(table, key))
	}
}
