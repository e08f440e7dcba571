package sift

import (
	"errors"
	"testing"
)

type testStruct struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := JSONCodec{}

	data, err := codec.Encode(&testStruct{Name: "test", Value: 42})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(data) != `{"name":"test","value":42}` {
		t.Errorf("unexpected encoding: %s", data)
	}

	var out testStruct
	if err := codec.Decode(data, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Name != "test" || out.Value != 42 {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestJSONCodec_Errors(t *testing.T) {
	codec := JSONCodec{}

	if _, err := codec.Encode(make(chan int)); !errors.Is(err, ErrEncode) {
		t.Errorf("expected ErrEncode, got %v", err)
	}

	var out testStruct
	if err := codec.Decode([]byte("{invalid"), &out); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}
