package braintree

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"
)

const trKindCreateTransaction = "create_transaction"

// ErrInvalidSignature is returned when a redirect query fails verification.
var ErrInvalidSignature = errors.New("braintree: transparent redirect signature mismatch")

// signer produces and verifies transparent redirect payloads.
type signer struct {
	publicKey  string
	privateKey string
	apiVersion string
	now        func() time.Time
}

func (s signer) hash(data string) string {
	key := sha1.Sum([]byte(s.privateKey))
	mac := hmac.New(sha1.New, key[:])
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// transactionData signs params for a create_transaction redirect, returning
// the value of the tr_data hidden field.
func (s signer) transactionData(params url.Values, redirectURL string) string {
	data := url.Values{}
	for k, vs := range params {
		data[k] = append([]string(nil), vs...)
	}
	data.Set("api_version", s.apiVersion)
	data.Set("kind", trKindCreateTransaction)
	data.Set("public_key", s.publicKey)
	data.Set("redirect_url", redirectURL)
	data.Set("time", s.now().UTC().Format("20060102150405"))

	encoded := data.Encode()
	return s.hash(encoded) + "|" + encoded
}

// verify checks the hash Braintree appends to the redirect query and returns
// the parsed query.
func (s signer) verify(rawQuery string) (url.Values, error) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	idx := strings.LastIndex(rawQuery, "&hash=")
	if idx < 0 {
		return nil, ErrInvalidSignature
	}
	signed, given := rawQuery[:idx], rawQuery[idx+len("&hash="):]
	if !hmac.Equal([]byte(s.hash(signed)), []byte(given)) {
		return nil, ErrInvalidSignature
	}
	return url.ParseQuery(rawQuery)
}
