package hooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/hookspec/packages/builtin"
	"github.com/abdul-hamid-achik/hookspec/packages/http"
)

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"

	// DefaultSecret signs requests when APP_SECRET is not set.
	DefaultSecret = "default-secret-key"
)

// Sign returns the hex HMAC-SHA256 of "method|url|timestamp".
func Sign(secret, method, url, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + "|" + url + "|" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the request fields.
func Verify(secret, method, url, timestamp, signature string) bool {
	expected := Sign(secret, method, url, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func signRequest(now func() time.Time) builtin.Function {
	return builtin.Function{
		Name:    "setup_hook_sign_request",
		Params:  hookParams("request"),
		Returns: builtin.ReturnMapping,
		Doc:     "Adds X-Timestamp and an HMAC-SHA256 X-Signature header signed with APP_SECRET.",
		Fn: func(c *builtin.Call) (any, error) {
			req, ok := c.Value("request").(*http.Request)
			if !ok {
				return nil, c.Argf("request must be a request record, got %T", c.Value("request"))
			}

			secret := DefaultSecret
			if v, ok := lookupVar(c, "env", c.Env(), "APP_SECRET"); ok && v != nil {
				secret = builtin.ToString(v)
			}

			method := req.Method
			if method == "" {
				method = "GET"
			}
			timestamp := strconv.FormatInt(now().Unix(), 10)
			signature := Sign(secret, method, req.URL, timestamp)

			headers := req.EnsureHeaders()
			headers[HeaderTimestamp] = timestamp
			headers[HeaderSignature] = signature

			c.Logger().Debug("request signed", "method", method, "url", req.URL)

			return map[string]any{
				"last_signature": signature,
				"last_timestamp": timestamp,
			}, nil
		},
	}
}
