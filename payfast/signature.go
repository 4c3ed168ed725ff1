// Package payfast builds signed PayFast checkout requests and verifies
// Instant Transaction Notifications (ITN) posted back by the gateway.
package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Field is one name/value pair of a PayFast form, order matters for ITN posts
type Field struct {
	Key   string
	Value string
}

type Fields []Field

// Get returns the first value stored under key
func (f Fields) Get(key string) string {
	for _, field := range f {
		if field.Key == key {
			return field.Value
		}
	}
	return ""
}

// Map flattens the fields, later duplicates win
func (f Fields) Map() map[string]string {
	out := make(map[string]string, len(f))
	for _, field := range f {
		out[field.Key] = field.Value
	}
	return out
}

// Signature signs values the order-independent way: non-empty values only,
// keys sorted, form-encoded, passphrase appended, MD5 lower hex.
func Signature(values map[string]string, passphrase string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		v := strings.TrimSpace(values[k])
		if v == "" {
			continue
		}
		parts = append(parts, k+"="+url.QueryEscape(v))
	}
	return digest(parts, passphrase)
}

// SignatureOrdered signs fields in the given order. Empty values are kept,
// matching how PayFast signs the ITN it posts.
func SignatureOrdered(fields Fields, passphrase string) string {
	return digest(encodeOrdered(fields), passphrase)
}

// DocumentOrderSignature signs a checkout request in the field order of the
// PayFast form reference, skipping empty values.
func DocumentOrderSignature(fields Fields, passphrase string) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		v := strings.TrimSpace(field.Value)
		if field.Key == "signature" || v == "" {
			continue
		}
		parts = append(parts, field.Key+"="+url.QueryEscape(v))
	}
	return digest(parts, passphrase)
}

func encodeOrdered(fields Fields) []string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if field.Key == "signature" {
			continue
		}
		parts = append(parts, field.Key+"="+url.QueryEscape(strings.TrimSpace(field.Value)))
	}
	return parts
}

func digest(parts []string, passphrase string) string {
	if passphrase != "" {
		parts = append(parts, "passphrase="+url.QueryEscape(strings.TrimSpace(passphrase)))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}
