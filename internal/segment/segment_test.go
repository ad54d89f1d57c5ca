package segment

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAttributes_CaseInsensitive(t *testing.T) {
	var attrs Attributes
	attrs.Set("tvg-ID", "one")
	attrs.Set("group-title", "News")
	attrs.Set("TVG-id", "two")

	if attrs.Len() != 2 {
		t.Fatalf("Expected 2 attributes, got %d", attrs.Len())
	}

	v, ok := attrs.Get("tvg-id")
	if !ok || v != "two" {
		t.Errorf("Expected tvg-id=two, got %q (found=%v)", v, ok)
	}

	// Last write keeps the first position and takes the latest spelling
	all := attrs.All()
	if all[0].Name != "TVG-id" || all[1].Name != "group-title" {
		t.Errorf("Unexpected order or names: %+v", all)
	}
}

func TestAttributes_ZeroValue(t *testing.T) {
	var attrs Attributes
	if _, ok := attrs.Get("missing"); ok {
		t.Error("Expected lookup on zero value to miss")
	}
	if attrs.Len() != 0 {
		t.Errorf("Expected empty attributes, got %d", attrs.Len())
	}
	if len(attrs.Map()) != 0 {
		t.Error("Expected empty map")
	}
}

func TestAttributes_MarshalJSON(t *testing.T) {
	var attrs Attributes
	attrs.Set("b", "2")
	attrs.Set("a", `quote "x"`)

	data, err := json.Marshal(attrs)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := `{"b":"2","a":"quote \"x\""}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}

func TestSegment_IsLive(t *testing.T) {
	if !(Segment{Duration: Unknown}).IsLive() {
		t.Error("Expected duration -1 to be live")
	}
	if (Segment{Duration: 0}).IsLive() {
		t.Error("Expected duration 0 not to be live")
	}
}

func TestAttributes_UnmarshalJSON(t *testing.T) {
	var seg Segment
	err := json.Unmarshal([]byte(`{"duration":-1,"uri":"http://a.test/x.ts","attributes":{"tvg-id":"X","group-title":"News"}}`), &seg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []Attribute{{Name: "tvg-id", Value: "X"}, {Name: "group-title", Value: "News"}}
	if got := seg.Attributes.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if !seg.IsLive() {
		t.Error("Expected live segment")
	}

	var attrs Attributes
	if err := json.Unmarshal([]byte(`["x"]`), &attrs); err == nil {
		t.Error("Expected error for non-object attributes")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &attrs); err == nil {
		t.Error("Expected error for non-string value")
	}
}
