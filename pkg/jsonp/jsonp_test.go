package jsonp

import (
	"testing"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "plain array", in: ` [1,2] `, want: `[1,2]`},
		{name: "anti-hijacking prefix", in: `{}&&{"resultCode":0}`, want: `{"resultCode":0}`},
		{name: "prefix with whitespace", in: "\n{}&& {\"a\":1}\n", want: `{"a":1}`},
		{name: "xssi prefix", in: ")]}'\n{\"a\":1}", want: `{"a":1}`},
		{name: "xssi prefix with comma", in: `)]}',{"a":1}`, want: `{"a":1}`},
		{name: "callback", in: `cb({"a":1})`, want: `{"a":1}`},
		{name: "callback with semicolon", in: `jQuery123_456({"a":[1]});`, want: `{"a":[1]}`},
		{name: "dotted callback", in: `window.handler ( {"a":1} ) ;`, want: `{"a":1}`},
		{name: "not a callback", in: `"text(1)"`, want: `"text(1)"`},
		{name: "empty", in: ``, want: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Strip([]byte(tt.in))); got != tt.want {
				t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	var payload struct {
		ResultCode int `json:"resultCode"`
		Payload    struct {
			ExactMatch struct {
				Name string `json:"name"`
			} `json:"exactMatch"`
		} `json:"payload"`
	}

	body := []byte(`{}&&{"resultCode":0,"payload":{"exactMatch":{"name":"60014"}}}`)
	if err := Decode(body, &payload); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if payload.Payload.ExactMatch.Name != "60014" {
		t.Errorf("name = %q, want 60014", payload.Payload.ExactMatch.Name)
	}

	if err := Decode([]byte(`{}&&<html>`), &payload); err == nil {
		t.Error("Decode() of garbage should fail")
	}
}
