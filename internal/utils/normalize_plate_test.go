package utils

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "   \t", want: ""},
		{name: "spaced arabic with indic digits", in: "أ ب ج ١٢٣", want: "ابج123"},
		{name: "bare alef western digits", in: "ا ب ج 123", want: "ابج123"},
		{name: "diacritics and tatweel", in: "بَـــجُ ٤٥", want: "بج45"},
		{name: "yeh and teh marbuta variants", in: "ى ة ؤ ئ", want: "يهوي"},
		{name: "persian digits", in: "د ۱۲۳", want: "د123"},
		{name: "latin mistypes lowercase", in: "a-b-j 77", want: "ابج77"},
		{name: "unknown latin dropped", in: "XQ 12", want: "12"},
		{name: "punctuation dropped", in: "(ر س) - 9/9", want: "رس99"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePlate(tc.in); got != tc.want {
				t.Fatalf("NormalizePlate(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizePlateIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"أ ب ج ١٢٣",
		"آلـــفٌ ٩٨",
		"ABJ 123",
		"ك ی ک ۴",
		"\u0000� garbage ☃",
	}
	for _, in := range inputs {
		once := NormalizePlate(in)
		if twice := NormalizePlate(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizePlateEquivalentSpellings(t *testing.T) {
	a := NormalizePlate("أ ب ج ١٢٣")
	b := NormalizePlate("ا ب ج 123")
	c := NormalizePlate("ابج123")
	d := NormalizePlate("ﺃﺏﺝ123")
	if a != b || b != c || c != d {
		t.Fatalf("expected identical keys, got %q %q %q %q", a, b, c, d)
	}
}

func TestNormalizePlatePresentationForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ﺃﺏﺝ123", "ابج123"},
		{"ﺍ ﺏ ﺝ ١٢٣", "ابج123"},
		{"ﺩﻫﻮ45", "دهو45"},
		{"ﻻ 7", "لا7"},
	}
	for _, tc := range cases {
		if got := NormalizePlate(tc.in); got != tc.want {
			t.Fatalf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := NormalizePlate(NormalizePlate(tc.in)); again != tc.want {
			t.Fatalf("normalizing %q twice gave %q", tc.in, again)
		}
	}
}

func TestPlateDigits(t *testing.T) {
	if got := PlateDigits("ابج123"); got != "123" {
		t.Fatalf("got %q", got)
	}
	if got := PlateDigits("ابج"); got != "" {
		t.Fatalf("got %q", got)
	}
}
