// Package normalize turns a decoded scenario-run response into printable text.
//
// The payload lives at result.response. When it is a string that holds a JSON
// document the document is re-serialized; any other string is shown as is.
// A response without that path is shown in full. Objects parsed from text
// keep their member order, as json.dumps would print them.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const indent = "  "

// Extract returns the payload to display and reports whether it was found
// at result.response. Text payloads that parse as JSON are returned parsed;
// other text is returned unchanged as a string. When ok is false the payload
// is resp itself.
func Extract(resp any) (payload any, ok bool) {
	payload, ok, _ = extract(resp)
	return payload, ok
}

// extract also reports whether the payload is text that is not JSON. A JSON
// document that decodes to a string ("\"hi\"") is not raw text.
func extract(resp any) (payload any, ok, raw bool) {
	result, found := field(resp, "result")
	if !found {
		return resp, false, false
	}
	content, found := field(result, "response")
	if !found {
		return resp, false, false
	}
	if text, isText := content.(string); isText {
		if parsed, err := ParseJSON(text); err == nil {
			return parsed, true, false
		}
		return text, true, true
	}
	return content, true, false
}

// field looks up key in a decoded object, ordered or not
func field(v any, key string) (any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		x, ok := obj[key]
		return x, ok
	case *Object:
		if obj == nil {
			return nil, false
		}
		return obj.Get(key)
	default:
		return nil, false
	}
}

// ParseJSON strictly decodes a single JSON value from s. Objects come back
// as *Object, numbers as json.Number, and trailing data is an error.
func ParseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// Normalize returns indented JSON for structured payloads and raw text for
// text payloads that are not JSON. It never fails: problems are reported as
// a one-line "Error: ..." string.
func Normalize(resp any) string {
	return render(resp, prettyLayout)
}

// Compact is Normalize on a single line, with ", " and ": " separators.
func Compact(resp any) string {
	return render(resp, compactLayout)
}

// Markdown wraps JSON output in a json code fence and leaves text alone.
func Markdown(resp any) (out string) {
	defer recoverInto(&out)

	payload, _, raw := extract(resp)
	if raw {
		return payload.(string)
	}
	js, err := marshal(payload, prettyLayout)
	if err != nil {
		return diagnostic(err)
	}
	return "```json\n" + js + "\n```"
}

// Text prefers a string "text" field of an object payload, otherwise it
// behaves like Normalize.
func Text(resp any) (out string) {
	defer recoverInto(&out)

	payload, ok, _ := extract(resp)
	if ok {
		if v, found := field(payload, "text"); found {
			if text, isText := v.(string); isText && text != "" {
				return text
			}
		}
	}
	return Normalize(resp)
}

func render(resp any, l layout) (out string) {
	defer recoverInto(&out)

	payload, _, raw := extract(resp)
	if raw {
		return payload.(string)
	}
	js, err := marshal(payload, l)
	if err != nil {
		return diagnostic(err)
	}
	return js
}

func marshal(v any, l layout) (string, error) {
	var buf bytes.Buffer
	if err := write(&buf, v, l, 0); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func recoverInto(out *string) {
	if r := recover(); r != nil {
		*out = diagnostic(fmt.Errorf("%v", r))
	}
}

func diagnostic(err error) string {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	return "Error: " + msg
}
