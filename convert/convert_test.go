package convert

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"syreclabs.com/go/faker"
)

func init() {
	faker.Seed(time.Now().UnixNano())
}

type position struct {
	X int    `json:"x" msgpack:"x"`
	Y int    `json:"y" msgpack:"y"`
	L string `json:"label" msgpack:"label"`
}

func TestAtMissingIndexYieldsZero(t *testing.T) {
	args := []any{"alice"}

	n, err := At[int](nil, args, 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}

	p, err := At[position](nil, nil, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if p != (position{}) {
		t.Errorf("expected zero position, got %+v", p)
	}
}

func TestToNilYieldsZero(t *testing.T) {
	s, err := To[string](nil, nil)
	if err != nil || s != "" {
		t.Errorf("expected empty string and nil error, got %q, %v", s, err)
	}
}

func TestToPassthrough(t *testing.T) {
	raw := map[string]any{"name": faker.Name().FirstName()}

	got, err := To[any](nil, raw)
	if err != nil {
		t.Fatalf("To failed: %v", err)
	}
	if reflect.ValueOf(got).Pointer() != reflect.ValueOf(raw).Pointer() {
		t.Error("expected the same map to be passed through")
	}
}

func TestToExactType(t *testing.T) {
	name := faker.Name().FirstName()
	got, err := To[string](nil, name)
	if err != nil {
		t.Fatalf("To failed: %v", err)
	}
	if got != name {
		t.Errorf("expected %q, got %q", name, got)
	}
}

func TestToNumbers(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"json number", json.Number("42"), 42},
		{"float64", float64(3), 3},
		{"int8", int8(7), 7},
		{"uint64", uint64(9), 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := To[int](nil, tt.value)
			if err != nil {
				t.Fatalf("To failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	f, err := To[float64](nil, json.Number("1.25"))
	if err != nil || f != 1.25 {
		t.Errorf("expected 1.25, got %v (%v)", f, err)
	}
}

func TestToStructural(t *testing.T) {
	t.Run("map to struct", func(t *testing.T) {
		got, err := To[position](nil, map[string]any{"x": 1.0, "y": json.Number("2"), "label": "home"})
		if err != nil {
			t.Fatalf("To failed: %v", err)
		}
		if diff := cmp.Diff(position{X: 1, Y: 2, L: "home"}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("slice of any to typed slice", func(t *testing.T) {
		got, err := To[[]int](nil, []any{1.0, 2.0, json.Number("3")})
		if err != nil {
			t.Fatalf("To failed: %v", err)
		}
		if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nested", func(t *testing.T) {
		type route struct {
			Stops []position `json:"stops"`
		}
		got, err := To[route](nil, map[string]any{
			"stops": []any{map[string]any{"x": 1}, map[string]any{"y": 2}},
		})
		if err != nil {
			t.Fatalf("To failed: %v", err)
		}
		want := route{Stops: []position{{X: 1}, {Y: 2}}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("raw json", func(t *testing.T) {
		got, err := To[position](nil, json.RawMessage(`{"x":5}`))
		if err != nil {
			t.Fatalf("To failed: %v", err)
		}
		if got.X != 5 {
			t.Errorf("expected x=5, got %+v", got)
		}
	})
}

func TestConversionErrors(t *testing.T) {
	tests := []struct {
		name  string
		value any
		conv  func(any) error
	}{
		{"number into string", 42, func(v any) error { _, err := To[string](nil, v); return err }},
		{"fraction into int", 3.5, func(v any) error { _, err := To[int](nil, v); return err }},
		{"object into int", map[string]any{"a": 1}, func(v any) error { _, err := To[int](nil, v); return err }},
		{"string into bool", "yes", func(v any) error { _, err := To[bool](nil, v); return err }},
		{"unencodable", make(chan int), func(v any) error { _, err := To[int](nil, v); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conv(tt.value)
			if !errors.Is(err, ErrConversion) {
				t.Fatalf("expected ErrConversion, got %v", err)
			}
			if !IsConversionError(err) {
				t.Errorf("expected *ConversionError, got %T", err)
			}
		})
	}
}

func TestAtConversionErrorCarriesIndex(t *testing.T) {
	_, err := At[string](nil, []any{"ok", 42}, 1)

	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected *ConversionError, got %v", err)
	}
	if convErr.Index != 1 {
		t.Errorf("expected index 1, got %d", convErr.Index)
	}
	if convErr.Target != reflect.TypeFor[string]() {
		t.Errorf("expected target string, got %v", convErr.Target)
	}
	if convErr.Value != 42 {
		t.Errorf("expected value 42, got %v", convErr.Value)
	}
}

func TestMsgPackCodec(t *testing.T) {
	c := MsgPack{}
	if c.ContentType() != "application/msgpack" {
		t.Errorf("unexpected content type %s", c.ContentType())
	}

	got, err := To[position](c, map[string]any{"x": int8(4), "y": uint16(8), "label": "dock"})
	if err != nil {
		t.Fatalf("To failed: %v", err)
	}
	if diff := cmp.Diff(position{X: 4, Y: 8, L: "dock"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	n, err := At[int64](c, []any{int8(-3)}, 0)
	if err != nil || n != -3 {
		t.Errorf("expected -3, got %d (%v)", n, err)
	}
}

func TestDefaultCodec(t *testing.T) {
	if Default().ContentType() != "application/json" {
		t.Errorf("expected JSON default, got %s", Default().ContentType())
	}
}
