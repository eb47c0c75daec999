package logger

import (
	"strings"
	"testing"
)

func TestRedactorMasksSecretsAndHashesPeople(t *testing.T) {
	r := newRedactor(true, "salt")
	out := r.kvs([]interface{}{
		"api_key", "sk-123",
		"teacher_id", "0f3c",
		"collection_id", "abc",
		"payload", map[string]interface{}{"password": "hunter2", "n": 3},
	})

	if got := out[1]; got != redacted {
		t.Fatalf("api_key: want=%q got=%v", redacted, got)
	}
	if got, _ := out[3].(string); !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("teacher_id: want hashed value, got=%v", out[3])
	}
	if got := out[5]; got != "abc" {
		t.Fatalf("collection_id: want=abc got=%v", got)
	}
	inner, ok := out[7].(map[string]interface{})
	if !ok {
		t.Fatalf("payload: want map, got=%T", out[7])
	}
	if inner["password"] != redacted || inner["n"] != 3 {
		t.Fatalf("payload: unexpected sanitization %v", inner)
	}
}

func TestRedactorDisabledPassesThrough(t *testing.T) {
	r := newRedactor(false, "")
	in := []interface{}{"password", "x"}
	out := r.kvs(in)
	if out[1] != "x" {
		t.Fatalf("disabled redactor changed value: %v", out)
	}
}

func TestRedactorOddKeyValueCount(t *testing.T) {
	r := newRedactor(true, "")
	out := r.kvs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
