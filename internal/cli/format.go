// Package cli contains utilities for CLI operations.
package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/modware/udfhost/pkg/wire"
)

// ParseArg converts one command-line token into a value of the expected
// kind. Scalars use their literal form, bytes are hex encoded and arrays
// and maps are given as JSON.
func ParseArg(kind wire.Kind, raw string) (wire.Value, error) {
	switch kind {
	case wire.KindUnit:
		if raw != "" && raw != "null" {
			return wire.Value{}, fmt.Errorf("unit argument takes no value, got %q", raw)
		}

		return wire.Unit(), nil
	case wire.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid bool %q: %w", raw, err)
		}

		return wire.Bool(b), nil
	case wire.KindInt64:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid integer %q: %w", raw, err)
		}

		return wire.Int64(i), nil
	case wire.KindFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid float %q: %w", raw, err)
		}

		return wire.Float64(f), nil
	case wire.KindString:
		return wire.String(raw), nil
	case wire.KindBytes:
		b, err := hex.DecodeString(raw)
		if err != nil {
			return wire.Value{}, fmt.Errorf("invalid hex bytes %q: %w", raw, err)
		}

		return wire.Bytes(b), nil
	case wire.KindArray, wire.KindMap:
		v, err := parseJSONValue(raw)
		if err != nil {
			return wire.Value{}, err
		}
		if v.Kind() != kind {
			return wire.Value{}, fmt.Errorf("expected %s JSON, got %s", kind, v.Kind())
		}

		return v, nil
	default:
		return wire.Value{}, fmt.Errorf("unsupported argument kind %s", kind)
	}
}

// ParseArgs pairs raw tokens with the parameter kinds of a signature.
func ParseArgs(sig wire.FunctionSignature, raw []string) ([]wire.Value, error) {
	if len(raw) != len(sig.Params) {
		return nil, fmt.Errorf(
			"%s takes %d arguments, got %d",
			sig.Name, len(sig.Params), len(raw),
		)
	}

	args := make([]wire.Value, len(raw))
	for i, token := range raw {
		v, err := ParseArg(sig.Params[i], token)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args[i] = v
	}

	return args, nil
}

// parseJSONValue converts a JSON document into the closest value kind.
func parseJSONValue(raw string) (wire.Value, error) {
	var doc any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return wire.Value{}, fmt.Errorf("invalid JSON %q: %w", raw, err)
	}

	return fromJSON(doc)
}

// fromJSON maps decoded JSON onto values. Whole numbers become integers,
// everything else numeric becomes a float.
func fromJSON(doc any) (wire.Value, error) {
	switch d := doc.(type) {
	case nil:
		return wire.Unit(), nil
	case bool:
		return wire.Bool(d), nil
	case string:
		return wire.String(d), nil
	case json.Number:
		if i, err := d.Int64(); err == nil {
			return wire.Int64(i), nil
		}
		f, err := d.Float64()
		if err != nil {
			return wire.Value{}, fmt.Errorf("unrepresentable number %s", d)
		}

		return wire.Float64(f), nil
	case []any:
		elems := make([]wire.Value, len(d))
		for i, e := range d {
			v, err := fromJSON(e)
			if err != nil {
				return wire.Value{}, err
			}
			elems[i] = v
		}

		return wire.Array(elems...), nil
	case map[string]any:
		entries := make([]wire.Entry, 0, len(d))
		for _, k := range sortedKeys(d) {
			v, err := fromJSON(d[k])
			if err != nil {
				return wire.Value{}, err
			}
			entries = append(entries, wire.Entry{Key: k, Val: v})
		}

		return wire.Map(entries...), nil
	default:
		return wire.Value{}, fmt.Errorf("unsupported JSON element %T", doc)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// FormatResult renders an invocation result for terminal output.
func FormatResult(v wire.Value) string {
	switch v.Kind() {
	case wire.KindUnit:
		return "ok"
	case wire.KindBool:
		return strconv.FormatBool(v.AsBool())
	case wire.KindInt64:
		return strconv.FormatInt(v.AsInt64(), 10)
	case wire.KindFloat64:
		f := v.AsFloat64()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Sprintf("%g", f)
		}

		return strconv.FormatFloat(f, 'g', -1, 64)
	case wire.KindString:
		return v.AsString()
	case wire.KindBytes:
		return hex.EncodeToString(v.AsBytes())
	case wire.KindMap:
		entries := v.SortedEntries()
		parts := make([]string, len(entries))
		for i, e := range entries {
			parts[i] = fmt.Sprintf("%s: %s", e.Key, FormatResult(e.Val))
		}

		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.String()
	}
}

// PrintSignatures prints a signature table in a readable format.
func PrintSignatures(sigs []wire.FunctionSignature) {
	fmt.Println("Exported functions:")
	fmt.Println("-------------------")
	for _, sig := range sigs {
		fmt.Printf("%s\n", sig)
	}
}
