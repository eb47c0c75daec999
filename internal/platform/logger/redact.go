package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const redacted = "[REDACTED]"

type redactor struct {
	enabled bool
	salt    string
}

func newRedactor(enabled bool, salt string) *redactor {
	return &redactor{enabled: enabled, salt: strings.TrimSpace(salt)}
}

func (r *redactor) kvs(kv []interface{}) []interface{} {
	if r == nil || !r.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		name := toString(kv[i])
		out = append(out, name, r.value(strings.ToLower(strings.TrimSpace(name)), kv[i+1]))
	}
	return out
}

func (r *redactor) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
	case secretKey(key):
		return redacted
	case personKey(key):
		return r.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = r.value(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, inner := range v {
			out = append(out, r.value("", inner))
		}
		return out
	case string:
		if looksLikeJWT(v) {
			return redacted
		}
	}
	return val
}

func secretKey(key string) bool {
	for _, needle := range []string{"token", "authorization", "password", "secret", "cookie", "api_key", "apikey", "access_key", "email"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

// personKey marks identifiers of people; they are logged as salted hashes so
// entries stay joinable without exposing the raw id.
func personKey(key string) bool {
	return strings.Contains(key, "user_id") || strings.Contains(key, "teacher_id") || strings.Contains(key, "created_by")
}

func (r *redactor) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	if r.salt != "" {
		_, _ = h.Write([]byte(r.salt))
	}
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
