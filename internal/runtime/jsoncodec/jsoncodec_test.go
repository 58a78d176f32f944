package jsoncodec

import (
	"bytes"
	"testing"
)

type testPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := testPayload{ID: 42, Name: "mockflow"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"id":42,"name":"mockflow"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var out testPayload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected round trip to match, got %#v", out)
	}
}

func TestMarshalSortsMapKeys(t *testing.T) {
	payload := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}

	first, err := Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(first) != `{"alpha":2,"mid":3,"zeta":1}` {
		t.Fatalf("expected sorted keys, got %s", first)
	}

	for i := 0; i < 20; i++ {
		again, err := Marshal(payload)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("expected stable encoding, got %s and %s", first, again)
		}
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"foo":"a"}`)) {
		t.Fatal("expected object to be valid")
	}
	if Valid([]byte(`{"foo":`)) {
		t.Fatal("expected truncated document to be invalid")
	}
}

func TestEncodeAndDecode(t *testing.T) {
	buf := &bytes.Buffer{}
	payload := testPayload{ID: 7, Name: "stream"}

	if err := Encode(buf, payload); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded testPayload
	if err := Decode(buf, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded != payload {
		t.Fatalf("expected decoded payload to match, got %#v", decoded)
	}
}
