package normalize

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

// decodeBody decodes a response body the way the scenario client does
func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	v, err := ParseJSON(body)
	if err != nil {
		t.Fatalf("bad test body: %v", err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("test body is %T, not an object", v)
	}
	return obj.Map()
}

type explodingValue struct{}

func (explodingValue) MarshalJSON() ([]byte, error) {
	panic("marshal exploded\nwith detail")
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "json string payload",
			body: `{"result": {"response": "{\"a\":1}"}}`,
			want: "{\n  \"a\": 1\n}",
		},
		{
			name: "plain text payload",
			body: `{"result": {"response": "hello"}}`,
			want: "hello",
		},
		{
			name: "unexpected shape",
			body: `{"unexpected": "shape"}`,
			want: "{\n  \"unexpected\": \"shape\"\n}",
		},
		{
			name: "object payload",
			body: `{"result": {"response": {"name": "王小明", "id": 7}}}`,
			want: "{\n  \"name\": \"王小明\",\n  \"id\": 7\n}",
		},
		{
			name: "missing response key",
			body: `{"result": {"status": "done"}}`,
			want: "{\n  \"result\": {\n    \"status\": \"done\"\n  }\n}",
		},
		{
			name: "result is not an object",
			body: `{"result": "nope"}`,
			want: "{\n  \"result\": \"nope\"\n}",
		},
		{
			name: "markdown text kept verbatim",
			body: `{"result": {"response": "# Title\n\n<b>bold</b> & more"}}`,
			want: "# Title\n\n<b>bold</b> & more",
		},
		{
			name: "json string with trailing garbage stays text",
			body: `{"result": {"response": "{\"a\":1} trailing"}}`,
			want: `{"a":1} trailing`,
		},
		{
			name: "json encoded string is reserialized",
			body: `{"result": {"response": "\"quoted\""}}`,
			want: `"quoted"`,
		},
		{
			name: "big integers keep precision",
			body: `{"result": {"response": "{\"n\": 12345678901234567890}"}}`,
			want: "{\n  \"n\": 12345678901234567890\n}",
		},
		{
			name: "null response",
			body: `{"result": {"response": null}}`,
			want: "null",
		},
		{
			name: "html characters are not escaped",
			body: `{"result": {"response": "{\"html\": \"<p>a&b</p>\"}"}}`,
			want: "{\n  \"html\": \"<p>a&b</p>\"\n}",
		},
		{
			name: "empty string stays text",
			body: `{"result": {"response": ""}}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(decodeBody(t, tt.body))
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeKeepsFieldOrder(t *testing.T) {
	body := `{"result": {"response": "{\"surname\": \"LEE\", \"given\": \"MING\", \"id_no\": \"A123\", \"address\": {\"zip\": \"100\", \"city\": \"Taipei\"}, \"empty\": {}, \"list\": []}"}}`

	wantPretty := "{\n" +
		"  \"surname\": \"LEE\",\n" +
		"  \"given\": \"MING\",\n" +
		"  \"id_no\": \"A123\",\n" +
		"  \"address\": {\n" +
		"    \"zip\": \"100\",\n" +
		"    \"city\": \"Taipei\"\n" +
		"  },\n" +
		"  \"empty\": {},\n" +
		"  \"list\": []\n" +
		"}"
	if got := Normalize(decodeBody(t, body)); got != wantPretty {
		t.Errorf("Normalize() = %q, want %q", got, wantPretty)
	}

	wantCompact := `{"surname": "LEE", "given": "MING", "id_no": "A123", "address": {"zip": "100", "city": "Taipei"}, "empty": {}, "list": []}`
	if got := Compact(decodeBody(t, body)); got != wantCompact {
		t.Errorf("Compact() = %q, want %q", got, wantCompact)
	}
}

func TestNormalizePlainMapsAreSorted(t *testing.T) {
	resp := map[string]any{"result": map[string]any{"response": map[string]any{"b": 1, "a": []any{true, nil}}}}
	if got := Compact(resp); got != `{"a": [true, null], "b": 1}` {
		t.Errorf("Compact() = %q", got)
	}
}

func TestObject(t *testing.T) {
	v, err := ParseJSON(`{"z": 1, "a": {"y": 2, "x": 3}, "z": 4}`)
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*Object)

	if keys := obj.Keys(); len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
	if z, _ := obj.Get("z"); z != json.Number("4") {
		t.Errorf("repeated key should take the last value, got %v", z)
	}
	if _, ok := obj.Get("missing"); ok {
		t.Error("Get() found a missing key")
	}

	b, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"z":4,"a":{"y":2,"x":3}}` {
		t.Errorf("MarshalJSON() = %s", b)
	}
}

func TestNormalizeMatchesReferenceEncoding(t *testing.T) {
	got := Normalize(map[string]any{"result": map[string]any{"response": `{"a":1}`}})

	var v map[string]any
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if v["a"] != float64(1) {
		t.Errorf("Expected a=1, got %v", v["a"])
	}
}

func TestNormalizeNeverFails(t *testing.T) {
	inputs := []any{
		map[string]any{"result": map[string]any{"response": math.NaN()}},
		map[string]any{"bad": make(chan int)},
		map[string]any{"result": map[string]any{"response": explodingValue{}}},
	}

	for i, in := range inputs {
		got := Normalize(in)
		if !strings.HasPrefix(got, "Error: ") {
			t.Errorf("input %d: expected diagnostic, got %q", i, got)
		}
		if strings.Contains(got, "\n") {
			t.Errorf("input %d: diagnostic spans lines: %q", i, got)
		}
	}
}

func TestNormalizeNonMapInput(t *testing.T) {
	if got := Normalize(nil); got != "null" {
		t.Errorf("Normalize(nil) = %q", got)
	}
	if got := Normalize([]any{"x", 1}); got != "[\n  \"x\",\n  1\n]" {
		t.Errorf("Normalize(slice) = %q", got)
	}
}

func TestCompact(t *testing.T) {
	got := Compact(decodeBody(t, `{"result": {"response": "{\"a\": [1, 2], \"b\": \"文字\"}"}}`))
	if want := `{"a": [1, 2], "b": "文字"}`; got != want {
		t.Errorf("Compact() = %q, want %q", got, want)
	}
	if got := Compact(decodeBody(t, `{"result": {"response": "plain"}}`)); got != "plain" {
		t.Errorf("Compact() = %q, want plain", got)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(decodeBody(t, `{"result": {"response": "{\"a\":1}"}}`))
	if want := "```json\n{\n  \"a\": 1\n}\n```"; got != want {
		t.Errorf("Markdown() = %q, want %q", got, want)
	}
	if got := Markdown(decodeBody(t, `{"result": {"response": "**bold**"}}`)); got != "**bold**" {
		t.Errorf("Markdown() = %q", got)
	}
	if got := Markdown(decodeBody(t, `{"error": "HTTP 500"}`)); !strings.HasPrefix(got, "```json\n") {
		t.Errorf("Markdown() fallback = %q", got)
	}
}

func TestText(t *testing.T) {
	got := Text(decodeBody(t, `{"result": {"response": "{\"text\": \"line one\\nline two\", \"score\": 0.9}"}}`))
	if got != "line one\nline two" {
		t.Errorf("Text() = %q", got)
	}
	got = Text(decodeBody(t, `{"result": {"response": {"text": "from object"}}}`))
	if got != "from object" {
		t.Errorf("Text() = %q", got)
	}
	got = Text(decodeBody(t, `{"result": {"response": "{\"other\": 1}"}}`))
	if got != "{\n  \"other\": 1\n}" {
		t.Errorf("Text() = %q", got)
	}
	// a top-level text field outside result.response is not used
	got = Text(decodeBody(t, `{"text": "ignored"}`))
	if got != "{\n  \"text\": \"ignored\"\n}" {
		t.Errorf("Text() = %q", got)
	}
}

func TestExtract(t *testing.T) {
	payload, ok := Extract(decodeBody(t, `{"result": {"response": "hello"}}`))
	if !ok || payload != "hello" {
		t.Errorf("Extract() = %v, %v", payload, ok)
	}

	resp := decodeBody(t, `{"other": true}`)
	payload, ok = Extract(resp)
	if ok {
		t.Error("Extract() should report a missing path")
	}
	if m, isMap := payload.(map[string]any); !isMap || m["other"] != true {
		t.Errorf("Extract() fallback payload = %v", payload)
	}
}

func TestParseJSON(t *testing.T) {
	valid := []string{`{}`, `[1,2]`, `"s"`, `12`, `true`, `null`, "  {\"a\": 1}\n"}
	for _, s := range valid {
		if _, err := ParseJSON(s); err != nil {
			t.Errorf("ParseJSON(%q) failed: %v", s, err)
		}
	}
	invalid := []string{``, `hello`, `{"a":1} x`, `1 2`, `{"a":`, `NaN`}
	for _, s := range invalid {
		if _, err := ParseJSON(s); err == nil {
			t.Errorf("ParseJSON(%q) should fail", s)
		}
	}
}

func BenchmarkNormalize(b *testing.B) {
	resp := map[string]any{"result": map[string]any{"response": `{"text": "abc", "boxes": [[1,2,3,4],[5,6,7,8]]}`}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize(resp)
	}
}
