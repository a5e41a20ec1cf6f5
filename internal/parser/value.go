package parser

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies the dynamic type of a front-matter Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// Value is a tagged-union front-matter value: string, number, bool, null,
// list, or map. Front-matter is author-written YAML with no schema, so fields
// are inspected by Kind rather than assumed.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	m    map[string]Value
}

// Kind returns the value's dynamic type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null or absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string form and whether the value is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric form and whether the value is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean form and whether the value is a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// List returns the list elements and whether the value is a list.
func (v Value) List() ([]Value, bool) { return v.list, v.kind == KindList }

// Map returns the map entries and whether the value is a map.
func (v Value) Map() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Text renders scalar values as display text. Lists and maps render empty;
// callers needing list contents use Strings.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull, KindList, KindMap:
		return ""
	}
	return ""
}

// Strings coerces the value into a string slice: a list yields its string
// elements, a scalar yields a one-element slice, null yields nil.
func (v Value) Strings() []string {
	switch v.kind {
	case KindList:
		var out []string
		for _, item := range v.list {
			if s := item.Text(); s != "" {
				out = append(out, s)
			}
		}
		return out
	case KindNull:
		return nil
	default:
		if s := v.Text(); s != "" {
			return []string{s}
		}
		return nil
	}
}

// UnmarshalYAML decodes an arbitrary YAML node into the tagged union.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return v.decodeScalar(node)
	case yaml.SequenceNode:
		list := make([]Value, len(node.Content))
		for i, child := range node.Content {
			if err := list[i].UnmarshalYAML(child); err != nil {
				return err
			}
		}
		*v = Value{kind: KindList, list: list}
		return nil
	case yaml.MappingNode:
		m := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var child Value
			if err := child.UnmarshalYAML(node.Content[i+1]); err != nil {
				return err
			}
			m[node.Content[i].Value] = child
		}
		*v = Value{kind: KindMap, m: m}
		return nil
	case yaml.AliasNode:
		if node.Alias != nil {
			return v.UnmarshalYAML(node.Alias)
		}
		*v = Value{kind: KindNull}
		return nil
	default:
		return fmt.Errorf("unsupported YAML node kind %d", node.Kind)
	}
}

func (v *Value) decodeScalar(node *yaml.Node) error {
	switch node.Tag {
	case "!!null", "":
		if node.Value == "" || node.Tag == "!!null" {
			*v = Value{kind: KindNull}
			return nil
		}
		*v = Value{kind: KindString, str: node.Value}
		return nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Value{kind: KindBool, b: b}
		return nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Value{kind: KindNumber, num: f}
		return nil
	default:
		*v = Value{kind: KindString, str: node.Value}
		return nil
	}
}
