/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package subscribe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/ppguide/site/restapi"
)

// DefaultSource is used when the request has no (or a falsy) source.
const DefaultSource = "unknown"

var (
	defaultSourceJSON = json.RawMessage(`"` + DefaultSource + `"`)
	jsonNull          = []byte("null")
)

// jsWhitespace is the set matched by \s in JavaScript regular expressions.
const jsWhitespace = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var emailRegexp = regexp.MustCompile(`^[^@` + jsWhitespace + `]+@[^@` + jsWhitespace + `]+\.[^@` + jsWhitespace + `]+$`)

// Request is a decoded subscription request. Members hold the raw JSON values as sent,
// nil when absent, since clients may send anything.
type Request struct {
	Email  json.RawMessage
	Source json.RawMessage
	UTM    json.RawMessage
}

// DecodeRequest reads a JSON request body.
// A JSON object gives a Request with its "email", "source" and "utm" members. Any other non-null
// JSON value gives an empty Request which fails validation. Malformed JSON is reported with
// restapi.ErrMalformedJSON and the null literal with ErrNullRequest.
func DecodeRequest(r io.Reader) (*Request, error) {
	var body json.RawMessage
	if err := restapi.DecodeJSON(r, &body); err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	switch {
	case bytes.Equal(body, jsonNull):
		return nil, ErrNullRequest
	case len(body) == 0 || body[0] != '{':
		return &Request{}, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", restapi.ErrMalformedJSON, err)
	}
	return &Request{Email: obj["email"], Source: obj["source"], UTM: obj["utm"]}, nil
}

// Subscription is a validated request ready to be forwarded.
// Source and UTM values are JSON and reach the subscriber fields unchanged.
type Subscription struct {
	Email  string
	Source json.RawMessage
	UTM    map[string]json.RawMessage
}

// Fields returns the custom subscriber fields: the source and the UTM parameters.
// A "source" UTM parameter overrides the source.
func (s Subscription) Fields() map[string]json.RawMessage {
	fields := make(map[string]json.RawMessage, len(s.UTM)+1)
	fields["source"] = s.Source
	for k, v := range s.UTM {
		fields[k] = v
	}
	return fields
}

// SourceText returns the source as plain text for logs.
func (s Subscription) SourceText() string {
	var text string
	if err := json.Unmarshal(s.Source, &text); err == nil {
		return text
	}
	return string(s.Source)
}

// Validate checks the email and normalizes source and UTM parameters.
// It returns *InvalidInputError if the email is missing or malformed.
func (r *Request) Validate() (*Subscription, error) {
	var email string
	if err := json.Unmarshal(r.Email, &email); err != nil || email == "" {
		return nil, &InvalidInputError{MessageEmailRequired}
	}
	if !emailRegexp.MatchString(email) {
		return nil, &InvalidInputError{MessageInvalidEmail}
	}

	sub := &Subscription{Email: email, Source: defaultSourceJSON}
	if isTruthy(r.Source) {
		sub.Source = r.Source
	}
	var utm map[string]json.RawMessage
	if len(r.UTM) != 0 && r.UTM[0] == '{' && json.Unmarshal(r.UTM, &utm) == nil {
		for k, v := range utm {
			if !isTruthy(v) {
				continue
			}
			if sub.UTM == nil {
				sub.UTM = make(map[string]json.RawMessage, len(utm))
			}
			sub.UTM[k] = v
		}
	}
	return sub, nil
}

// isTruthy follows JavaScript truthiness for a raw JSON value. Absent values are falsy.
func isTruthy(v json.RawMessage) bool {
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		return json.Unmarshal(v, &s) != nil || s != ""
	default:
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	}
}
