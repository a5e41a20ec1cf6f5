package parser

import (
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, src string) Value {
	t.Helper()
	var v Value
	if err := yaml.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", src, err)
	}
	return v
}

func TestValue_Kinds(t *testing.T) {
	if v := decode(t, "hello"); v.Kind() != KindString || v.Text() != "hello" {
		t.Errorf("string: %v %q", v.Kind(), v.Text())
	}
	if v := decode(t, "42"); v.Kind() != KindNumber || v.Text() != "42" {
		t.Errorf("number: %v %q", v.Kind(), v.Text())
	}
	if v := decode(t, "true"); v.Kind() != KindBool || v.Text() != "true" {
		t.Errorf("bool: %v %q", v.Kind(), v.Text())
	}
	if v := decode(t, "null"); !v.IsNull() {
		t.Error("null: expected IsNull")
	}
	if v := decode(t, "[a, b]"); v.Kind() != KindList {
		t.Errorf("list: %v", v.Kind())
	}
	if v := decode(t, "k: v"); v.Kind() != KindMap {
		t.Errorf("map: %v", v.Kind())
	}
}

func TestValue_Strings(t *testing.T) {
	if got := decode(t, "[a, b, 3]").Strings(); !reflect.DeepEqual(got, []string{"a", "b", "3"}) {
		t.Errorf("list: got %v", got)
	}
	if got := decode(t, "solo").Strings(); !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("scalar: got %v", got)
	}
	if got := decode(t, "null").Strings(); got != nil {
		t.Errorf("null: got %v", got)
	}
}

func TestValue_MapAccess(t *testing.T) {
	v := decode(t, "outer:\n  inner: x")
	m, ok := v.Map()
	if !ok {
		t.Fatal("expected map")
	}
	inner, ok := m["outer"].Map()
	if !ok {
		t.Fatal("expected nested map")
	}
	if s, _ := inner["inner"].Str(); s != "x" {
		t.Errorf("nested value: got %q", s)
	}
}
