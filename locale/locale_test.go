package locale

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "EN-us", want: "en_US"},
		{in: "pt_br", want: "pt_BR"},
		{in: " ru ", want: "ru"},
		{in: "sr-latn-rs", want: "sr_LATN_RS"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := Canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("Canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if again := Canonicalize(got); again != got {
			t.Fatalf("Canonicalize not idempotent: %q -> %q", got, again)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("en-us", "EN_US") {
		t.Fatal("expected en-us == EN_US")
	}
	if Equal("en", "en_US") {
		t.Fatal("expected en != en_US")
	}
}

func TestScriptFamily(t *testing.T) {
	cases := []struct {
		in   string
		want Family
	}{
		{"en", Latin},
		{"ru", Cyrillic},
		{"uz", Cyrillic},
		{"uz-Latn", Latin},
		{"sr_latn_rs", Latin},
		{"sr_RS", Cyrillic},
		{"ar_EG", RTL},
		{"zh_TW", CJK},
		{"hi", Brahmic},
		{"xx", Latin},
		{"", Latin},
	}
	for _, tc := range cases {
		if got := ScriptFamily(tc.in); got != tc.want {
			t.Errorf("ScriptFamily(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHumanize(t *testing.T) {
	cases := []struct {
		name string
		text string
		lang string
		want string
	}{
		{"english title case", "display_name", "en", "Display Name"},
		{"english camel", "displayName", "en_US", "Display Name"},
		{"sentence case latin", "display_name", "es", "Display name"},
		{"sentence case cyrillic", "имя_пользователя", "ru", "Имя пользователя"},
		{"rtl untouched", "first-name", "ar", "first name"},
		{"cjk untouched", "user.name", "ja", "user name"},
		{"separators collapse", "a.._--b", "en", "A B"},
		{"only separators", " ... ", "en", "..."},
		{"digits only", "404", "en", "404"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Humanize(tc.text, tc.lang); got != tc.want {
				t.Fatalf("Humanize(%q, %q) = %q, want %q", tc.text, tc.lang, got, tc.want)
			}
		})
	}
}

func TestBase(t *testing.T) {
	if got := Base("pt-br"); got != "pt" {
		t.Fatalf("Base(pt-br) = %q, want pt", got)
	}
}

func TestNames(t *testing.T) {
	if got := Name("ru"); got != "Russian" {
		t.Fatalf("Name(ru) = %q, want Russian", got)
	}
	if got := Name("not a tag!"); got != "not a tag!" {
		t.Fatalf("Name passthrough = %q", got)
	}
	if got := Native("ru"); got == "" || got == "ru" {
		t.Fatalf("Native(ru) = %q, want a self-name", got)
	}
	if !Valid("pt_BR") || Valid("not a tag!") {
		t.Fatal("Valid mismatch")
	}
}
