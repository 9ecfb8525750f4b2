package payfast

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	FieldSignature  = "signature"
	FieldPassphrase = "passphrase"
)

// Encode reproduces the gateway's server-side urlencode: spaces become '+'
// and every byte outside [A-Za-z0-9-_.] is percent-encoded in upper case.
func Encode(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "~", "%7E")
}

// canonicalPairs returns the sorted key=value pairs that take part in a
// signature. Empty (after trimming) values and the signature itself are skipped.
func canonicalPairs(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == FieldSignature || strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		pairs = append(pairs, k+"="+Encode(strings.TrimSpace(params[k])))
	}
	return pairs
}

// SignableString builds the exact byte string the gateway hashes.
func SignableString(params map[string]string, passphrase string) string {
	pairs := canonicalPairs(params)
	if p := strings.TrimSpace(passphrase); p != "" {
		pairs = append(pairs, FieldPassphrase+"="+Encode(p))
	}
	return strings.Join(pairs, "&")
}

// Sign returns the lowercase hex MD5 digest of the signable string.
// MD5 is fixed by the gateway protocol.
func Sign(params map[string]string, passphrase string) string {
	sum := md5.Sum([]byte(SignableString(params, passphrase)))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the digest over params (minus the signature
// field) and compares it with params["signature"] in constant time.
func VerifySignature(params map[string]string, passphrase string) bool {
	received := params[FieldSignature]
	if received == "" {
		return false
	}
	expected := Sign(params, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
