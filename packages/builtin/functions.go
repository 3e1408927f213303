package builtin

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (r *Registry) registerDefaults() {
	defaults := []Function{
		{
			Name: "ts",
			Doc:  "Current Unix timestamp in seconds. Never decreases within a process.",
			Fn:   funcTS(r.now),
		},
		{
			Name: "uid",
			Doc:  "Random UUID v4 with dashes.",
			Fn:   funcUID,
		},
		{
			Name:   "short_uid",
			Params: []Param{{Name: "length", Default: int64(8)}},
			Doc:    "Lowercase hex string of the given length taken from dash-less UUIDs.",
			Fn:     funcShortUID,
		},
		{
			Name:   "md5",
			Params: []Param{{Name: "text", Required: true}},
			Doc:    "MD5 hex digest of the UTF-8 text.",
			Fn:     funcMD5,
		},
		{
			Name:   "sha256",
			Params: []Param{{Name: "text", Required: true}},
			Doc:    "SHA-256 hex digest of the UTF-8 text.",
			Fn:     funcSHA256,
		},
		{
			Name: "now",
			Doc:  "Current UTC time in RFC 3339 format.",
			Fn: func(*Call) (any, error) {
				return r.now().UTC().Format(time.RFC3339), nil
			},
		},
		{
			Name: "timestamp_ms",
			Doc:  "Current Unix timestamp in milliseconds.",
			Fn: func(*Call) (any, error) {
				return r.now().UnixMilli(), nil
			},
		},
		{
			Name:   "date",
			Params: []Param{{Name: "format", Default: "2006-01-02"}},
			Doc:    "Current UTC date rendered with a Go time layout.",
			Fn: func(c *Call) (any, error) {
				return r.now().UTC().Format(c.String("format")), nil
			},
		},
		{
			Name:   "random",
			Params: []Param{{Name: "min", Default: int64(0)}, {Name: "max", Default: int64(100)}},
			Doc:    "Random integer in [min, max].",
			Fn:     funcRandom,
		},
		{
			Name:   "random_string",
			Params: []Param{{Name: "length", Default: int64(8)}},
			Doc:    "Random alphanumeric string.",
			Fn:     funcRandomString,
		},
		{
			Name:   "base64",
			Params: []Param{{Name: "value", Required: true}},
			Doc:    "Standard base64 encoding of the value.",
			Fn: func(c *Call) (any, error) {
				return base64.StdEncoding.EncodeToString([]byte(c.String("value"))), nil
			},
		},
		{
			Name:   "base64_decode",
			Params: []Param{{Name: "value", Required: true}},
			Doc:    "Decodes standard base64.",
			Fn: func(c *Call) (any, error) {
				decoded, err := base64.StdEncoding.DecodeString(c.String("value"))
				if err != nil {
					return nil, fmt.Errorf("invalid base64: %w", err)
				}
				return string(decoded), nil
			},
		},
		{
			Name:   "url_encode",
			Params: []Param{{Name: "value", Required: true}},
			Doc:    "Query-escapes the value.",
			Fn: func(c *Call) (any, error) {
				return url.QueryEscape(c.String("value")), nil
			},
		},
		{
			Name:   "url_decode",
			Params: []Param{{Name: "value", Required: true}},
			Doc:    "Reverses url_encode.",
			Fn: func(c *Call) (any, error) {
				decoded, err := url.QueryUnescape(c.String("value"))
				if err != nil {
					return nil, fmt.Errorf("invalid url encoding: %w", err)
				}
				return decoded, nil
			},
		},
	}

	for _, fn := range defaults {
		fn := fn
		r.funcs[fn.Name] = &fn
	}
}

func funcTS(now func() time.Time) Func {
	var last atomic.Int64
	return func(*Call) (any, error) {
		current := now().Unix()
		for {
			prev := last.Load()
			if current <= prev {
				return prev, nil
			}
			if last.CompareAndSwap(prev, current) {
				return current, nil
			}
		}
	}
}

func funcUID(*Call) (any, error) {
	return uuid.New().String(), nil
}

func funcShortUID(c *Call) (any, error) {
	n, err := c.Int("length")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, c.Argf("length must be at least 1, got %d", n)
	}

	var sb strings.Builder
	for sb.Len() < n {
		sb.WriteString(strings.ReplaceAll(uuid.New().String(), "-", ""))
	}
	return sb.String()[:n], nil
}

func funcMD5(c *Call) (any, error) {
	sum := md5.Sum([]byte(c.String("text")))
	return hex.EncodeToString(sum[:]), nil
}

func funcSHA256(c *Call) (any, error) {
	sum := sha256.Sum256([]byte(c.String("text")))
	return hex.EncodeToString(sum[:]), nil
}

func funcRandom(c *Call) (any, error) {
	lo, err := c.Int("min")
	if err != nil {
		return nil, err
	}
	hi, err := c.Int("max")
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, c.Argf("max (%d) is less than min (%d)", hi, lo)
	}
	return int64(lo + rand.Intn(hi-lo+1)), nil
}

func funcRandomString(c *Call) (any, error) {
	n, err := c.Int("length")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, c.Argf("length must not be negative, got %d", n)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(b), nil
}
