// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		wantErr      bool
		wantSemantic bool
	}{
		{name: "full semver", raw: "1.2.3", wantSemantic: true},
		{name: "major only", raw: "4", wantSemantic: true},
		{name: "major minor", raw: "1.16", wantSemantic: true},
		{name: "prerelease", raw: "0.5.0-beta.2", wantSemantic: true},
		{name: "build metadata", raw: "2.0.0+mc1.20.1", wantSemantic: true},
		{name: "v prefix is opaque", raw: "v1.0.0", wantSemantic: false},
		{name: "four components is opaque", raw: "1.2.3.4", wantSemantic: false},
		{name: "revision string", raw: "r12", wantSemantic: false},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace", raw: "  \t", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.raw)
				}
				if !errors.Is(err, ErrUnparseable) {
					t.Errorf("Parse(%q) error should wrap ErrUnparseable, got %v", tt.raw, err)
				}
				var pe *ParseError
				if !errors.As(err, &pe) || pe.Raw != tt.raw {
					t.Errorf("Parse(%q) error should be *ParseError with Raw set, got %#v", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.raw, err)
			}
			if v.IsSemantic() != tt.wantSemantic {
				t.Errorf("Parse(%q).IsSemantic() = %v, want %v", tt.raw, v.IsSemantic(), tt.wantSemantic)
			}
			if v.String() != tt.raw {
				t.Errorf("String() = %q, want %q", v.String(), tt.raw)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
		{"4", "4.0.0", 0},
		{"1.16", "1.16.1", -1},
		{"1.2.3.4", "0.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0-alpha.2", "1.0.0-alpha.10", -1},
		{"1.0.0+build1", "1.0.0+build2", 0},
		{"0.0.1", "r12", 1},
		{"r12", "0.0.1", -1},
		{"r5", "r12", 1},
		{"r12", "r12", 0},
		{"v2.0.0", "1.0.0", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			t.Parallel()

			got := Compare(MustParse(tt.a), MustParse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAmbiguous(t *testing.T) {
	t.Parallel()

	if !Ambiguous(MustParse("r5"), MustParse("r12")) {
		t.Error("two opaque versions should be ambiguous")
	}
	if Ambiguous(MustParse("1.0.0"), MustParse("r12")) {
		t.Error("semantic vs opaque should not be ambiguous")
	}
	if Ambiguous(MustParse("1.0.0"), MustParse("1.0.1")) {
		t.Error("two semantic versions should not be ambiguous")
	}
}

func TestMustParsePanicsOnEmpty(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("MustParse(\"\") should panic")
		}
	}()
	_ = MustParse("")
}

// versionGen draws either a semantic or an opaque version string.
func versionGen() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Custom(func(t *rapid.T) string {
			major := rapid.IntRange(0, 20).Draw(t, "major")
			minor := rapid.IntRange(0, 20).Draw(t, "minor")
			patch := rapid.IntRange(0, 20).Draw(t, "patch")
			s := strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)
			if rapid.Bool().Draw(t, "pre") {
				s += "-" + rapid.SampledFrom([]string{"alpha", "beta", "rc.1", "rc.2"}).Draw(t, "tag")
			}
			return s
		}),
		rapid.StringMatching(`r[0-9]{1,3}`),
		rapid.StringMatching(`[a-z]{1,6}-[0-9]{1,2}`),
	)
}

func TestCompareProperties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		a := MustParse(versionGen().Draw(t, "a"))
		b := MustParse(versionGen().Draw(t, "b"))
		c := MustParse(versionGen().Draw(t, "c"))

		if Compare(a, a) != 0 {
			t.Fatalf("Compare(%s, %s) should be 0", a, a)
		}
		if Compare(a, b) != -Compare(b, a) {
			t.Fatalf("Compare is not antisymmetric for %s, %s", a, b)
		}
		if a.IsSemantic() && !b.IsSemantic() && Compare(a, b) != 1 {
			t.Fatalf("semantic %s should rank above opaque %s", a, b)
		}
		if Compare(a, b) <= 0 && Compare(b, c) <= 0 && Compare(a, c) > 0 {
			t.Fatalf("Compare is not transitive for %s <= %s <= %s", a, b, c)
		}
	})
}
