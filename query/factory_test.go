package query

import (
	"reflect"
	"testing"
)

func TestApplyDefaultTypeMapping_Param(t *testing.T) {
	src := NewMappingSource()
	f := NewExpressionFactory(src)

	p := Param(1.5)
	out := f.ApplyDefaultTypeMapping(p)

	mapped, ok := out.(*ParamExpr)
	if !ok {
		t.Fatalf("expected *ParamExpr, got %T", out)
	}
	want, _ := src.FindMapping(reflect.TypeFor[float64]())
	if mapped.TypeMapping() != want {
		t.Errorf("expected float64 mapping, got %v", mapped.TypeMapping())
	}
	if p.TypeMapping() != nil {
		t.Error("input param was mutated")
	}
	if mapped.Value != 1.5 {
		t.Errorf("value changed: %v", mapped.Value)
	}
}

func TestApplyDefaultTypeMapping_Column(t *testing.T) {
	f := NewExpressionFactory(NewMappingSource())

	col := Column("name", reflect.TypeFor[string]())
	out := f.ApplyDefaultTypeMapping(col)

	mapped, ok := out.(*ColumnExpr)
	if !ok {
		t.Fatalf("expected *ColumnExpr, got %T", out)
	}
	if mapped.TypeMapping() == nil || mapped.TypeMapping().StoreType != "text" {
		t.Errorf("expected text mapping, got %v", mapped.TypeMapping())
	}
	if mapped.Name != "name" {
		t.Errorf("name changed: %q", mapped.Name)
	}
}

func TestApplyDefaultTypeMapping_Unchanged(t *testing.T) {
	f := NewExpressionFactory(NewMappingSource())
	custom := &TypeMapping{GoType: reflect.TypeFor[float64](), StoreType: "numeric"}

	mapped := Param(2.0).WithMapping(custom)
	unknown := Param(struct{}{})
	pred := Eq(Column("a", reflect.TypeFor[int]()), Param(1))

	for name, e := range map[string]Expression{
		"already mapped": mapped,
		"unknown type":   unknown,
		"predicate":      pred,
	} {
		t.Run(name, func(t *testing.T) {
			if got := f.ApplyDefaultTypeMapping(e); got != e {
				t.Errorf("expected same expression back, got %v", got)
			}
		})
	}

	if f.ApplyDefaultTypeMapping(nil) != nil {
		t.Error("expected nil for nil input")
	}
}
