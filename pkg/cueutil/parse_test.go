// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Doc: {
	name:   string & !=""
	count?: int & >=0
	...
}
`

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    testDoc
		wantErr string
	}{
		{
			name: "json document",
			data: `{"name": "a", "count": 2, "extra": true}`,
			want: testDoc{Name: "a", Count: 2},
		},
		{
			name: "cue document",
			data: "name: \"b\"\n",
			want: testDoc{Name: "b"},
		},
		{
			name:    "missing required field",
			data:    `{"count": 1}`,
			wantErr: "doc.json",
		},
		{
			name:    "constraint violation",
			data:    `{"name": "a", "count": -1}`,
			wantErr: "count",
		},
		{
			name:    "syntax error",
			data:    `{"name": `,
			wantErr: "doc.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Decode[testDoc]([]byte(testSchema), []byte(tt.data), "#Doc", WithFilename("doc.json"))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Decode() expected error containing %q", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Decode() error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("Decode() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestDecode_MaxFileSize(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`{"name": "abc"}`), "#Doc", WithMaxFileSize(4))
	if err == nil {
		t.Fatal("expected size limit error")
	}
	if !strings.Contains(err.Error(), "exceeds the 4 byte limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestUnify_NonConcrete(t *testing.T) {
	t.Parallel()

	// Optional fields stay unset when concreteness is not required.
	v, err := Unify([]byte(testSchema), []byte(`name: "x"`), "#Doc", WithConcrete(false))
	if err != nil {
		t.Fatalf("Unify() unexpected error: %v", err)
	}
	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil || name != "x" {
		t.Errorf("name = %q, %v; want \"x\"", name, err)
	}
}
