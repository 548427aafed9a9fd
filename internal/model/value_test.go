package model

import (
	"testing"
)

func TestEqualNumbersCompareByLiteral(t *testing.T) {
	if Equal(Number("1"), Number("1.0")) {
		t.Fatal("different literals must not be equal")
	}
	if !Equal(Number("1.0"), Number("1.0")) {
		t.Fatal("identical literals must be equal")
	}
}

func TestEqualDeep(t *testing.T) {
	left := Map{
		"name":     String("hermes"),
		"keywords": List{String("metadata"), String("publishing")},
		"nested":   Map{"ok": Bool(true), "none": Null{}},
	}
	right := Map{
		"name":     String("hermes"),
		"keywords": List{String("metadata"), String("publishing")},
		"nested":   Map{"ok": Bool(true), "none": Null{}},
	}
	if !Equal(left, right) {
		t.Fatal("expected deep equality")
	}

	right["keywords"] = List{String("publishing"), String("metadata")}
	if Equal(left, right) {
		t.Fatal("list order must matter")
	}
}

func TestMarshalValueSortsMapKeys(t *testing.T) {
	data, err := MarshalValue(Map{"b": Number("2"), "a": Number("1"), "c": Null{}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":1,"b":2,"c":null}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestUnmarshalValuePreservesNumberLiterals(t *testing.T) {
	value, err := UnmarshalValue([]byte(`{"version":"1.0","ratio":0.50,"count":12345678901234567890}`))
	if err != nil {
		t.Fatal(err)
	}
	mapping, ok := value.(Map)
	if !ok {
		t.Fatalf("expected Map, got %T", value)
	}
	if got := mapping["ratio"]; !Equal(got, Number("0.50")) {
		t.Fatalf("ratio literal lost: %v", got)
	}
	if got := mapping["count"]; !Equal(got, Number("12345678901234567890")) {
		t.Fatalf("big integer literal lost: %v", got)
	}

	data, err := MarshalValue(value)
	if err != nil {
		t.Fatal(err)
	}
	reparsed, err := UnmarshalValue(data)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(value, reparsed) {
		t.Fatalf("round-trip changed the value: %s", data)
	}
}

func TestCloneIsolatesContainers(t *testing.T) {
	original := Map{"list": List{String("a")}, "map": Map{"k": String("v")}}
	clone := Clone(original).(Map)

	clone["map"].(Map)["k"] = String("changed")
	clone["list"].(List)[0] = String("changed")

	if !Equal(original["map"].(Map)["k"], String("v")) {
		t.Fatal("map clone shares storage with the original")
	}
	if !Equal(original["list"].(List)[0], String("a")) {
		t.Fatal("list clone shares storage with the original")
	}
}

func TestFromGoToGo(t *testing.T) {
	value, err := FromGo(map[string]any{
		"name":  "hermes",
		"count": 3,
		"tags":  []any{"a", "b"},
		"flag":  true,
		"none":  nil,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Map{
		"name":  String("hermes"),
		"count": Number("3"),
		"tags":  List{String("a"), String("b")},
		"flag":  Bool(true),
		"none":  Null{},
	}
	if !Equal(value, want) {
		t.Fatalf("conversion mismatch: %s", Render(value))
	}

	back := ToGo(value).(map[string]any)
	if back["name"] != "hermes" || back["flag"] != true {
		t.Fatalf("ToGo mismatch: %#v", back)
	}
	if back["count"] != int64(3) {
		t.Fatalf("expected int64 for integer literal, got %T", back["count"])
	}
}
