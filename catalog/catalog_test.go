package catalog

import (
	"reflect"
	"testing"

	"github.com/minios-linux/transync/store"
)

func ns(kind store.Kind, kv ...string) store.Namespace {
	n := store.NewNamespace(kind)
	for i := 0; i+1 < len(kv); i += 2 {
		n.Entries[kv[i]] = kv[i+1]
	}
	return n
}

func TestUnify(t *testing.T) {
	messages := store.Ref{Origin: MainOrigin, Name: "messages"}
	blogFlat := store.Ref{Origin: "Blog"}
	validation := store.Ref{Origin: MainOrigin, Name: "validation"}

	in := Input{
		Code: map[string]string{
			"user_profile.display_name": MainOrigin,
			"messages.welcome":          MainOrigin,
			"Welcome, :name!":           MainOrigin,
			"shared.key":                MainOrigin,
		},
		Stores: store.Snapshot{
			"en": {
				messages: ns(store.Dotted, "welcome", "Welcome", "blank", " "),
				blogFlat: ns(store.Flat, "shared.key", "Shared"),
			},
			"ru": {
				messages: ns(store.Dotted, "welcome", "Добро пожаловать", "extra", "Дополнительно", "blank", "Пусто"),
			},
			"de": {
				messages: ns(store.Dotted, "extra", "Extra"),
			},
		},
		Defaults: store.Snapshot{
			"en": {validation: ns(store.Dotted, "required", "The :attribute field is required.")},
		},
		RefLang: "en",
	}

	c := Unify(in)

	wantKeys := []string{
		"Welcome, :name!",
		"messages.blank",
		"messages.extra",
		"messages.welcome",
		"shared.key",
		"user_profile.display_name",
		"validation.required",
	}
	if !reflect.DeepEqual(c.Keys, wantKeys) {
		t.Fatalf("Keys = %q, want %q", c.Keys, wantKeys)
	}

	sources := []struct {
		key  string
		text string
		tier Tier
	}{
		{"messages.welcome", "Welcome", TierReference},
		{"messages.extra", "Extra", TierOtherLang}, // de sorts before ru
		{"messages.blank", "Пусто", TierOtherLang},
		{"validation.required", "The :attribute field is required.", TierDefaults},
		{"user_profile.display_name", "Display Name", TierDerived},
		{"Welcome, :name!", "Welcome, :name!", TierDerived},
		{"shared.key", "Shared", TierReference},
	}
	for _, s := range sources {
		got := c.Sources[s.key]
		if got.Text != s.text || got.Tier != s.tier {
			t.Errorf("Sources[%q] = %+v, want {%q %s}", s.key, got, s.text, s.tier)
		}
	}

	if got := c.Origin("shared.key"); got != "Blog" {
		t.Errorf("origin of shared.key = %q, want Blog (store beats code)", got)
	}
	if got := c.Origin("validation.required"); got != MainOrigin {
		t.Errorf("origin of default key = %q", got)
	}
	if text, stored := c.Source("user_profile.display_name"); stored || text != "Display Name" {
		t.Errorf("Source(derived) = %q, %v", text, stored)
	}
}

func TestUnused(t *testing.T) {
	messages := store.Ref{Origin: MainOrigin, Name: "messages"}
	validation := store.Ref{Origin: MainOrigin, Name: "validation"}
	blog := store.Ref{Origin: "Blog"}
	in := Input{
		Code: map[string]string{"messages.welcome": MainOrigin},
		Stores: store.Snapshot{
			"en": {
				messages:   ns(store.Dotted, "welcome", "Welcome", "old", "Old"),
				validation: ns(store.Dotted, "required", "Required"),
			},
			"ru": {
				messages: ns(store.Dotted, "old", "Старый"),
				blog:     ns(store.Flat, "Read more", "Подробнее"),
			},
		},
		Defaults: store.Snapshot{
			"en": {validation: ns(store.Dotted, "required", "The :attribute field is required.")},
		},
		RefLang: "en",
	}
	want := []string{"Read more", "messages.old"}
	if got := Unused(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("Unused = %q, want %q", got, want)
	}
	if got := Unused(Input{Code: in.Code}); got != nil {
		t.Fatalf("Unused without stores = %q", got)
	}
}

func TestUnifyOriginFirstWriterWins(t *testing.T) {
	c := Unify(Input{
		Stores: store.Snapshot{
			"en": {
				{Origin: "Blog", Name: "common"}:     ns(store.Dotted, "ok", "OK"),
				{Origin: MainOrigin, Name: "common"}: ns(store.Dotted, "ok", "Okay"),
			},
		},
		Code:    map[string]string{"common.ok": "Shop"},
		RefLang: "en",
	})
	if got := c.Origin("common.ok"); got != MainOrigin {
		t.Fatalf("origin = %q, want main", got)
	}
	if got := c.Sources["common.ok"].Text; got != "Okay" {
		t.Fatalf("source = %q, want main's value", got)
	}
}

func TestRefFor(t *testing.T) {
	cases := []struct {
		key   string
		ref   store.Ref
		local string
	}{
		{"auth.failed", store.Ref{Origin: "main", Name: "auth"}, "failed"},
		{"user-profile.name.first", store.Ref{Origin: "main", Name: "user-profile"}, "name.first"},
		{"Welcome, :name!", store.Ref{Origin: "main"}, "Welcome, :name!"},
		{"blog::posts.title", store.Ref{Origin: "main"}, "blog::posts.title"},
		{"Please wait.", store.Ref{Origin: "main"}, "Please wait."},
		{".lead", store.Ref{Origin: "main"}, ".lead"},
		{"plain", store.Ref{Origin: "main"}, "plain"},
	}
	for _, tc := range cases {
		ref, local := RefFor(tc.key, "main")
		if ref != tc.ref || local != tc.local {
			t.Errorf("RefFor(%q) = %v, %q; want %v, %q", tc.key, ref, local, tc.ref, tc.local)
		}
	}
}

func TestGroup(t *testing.T) {
	c := &Catalog{Origins: map[string]string{"posts.title": "Blog"}}
	groups := c.Group([]string{"auth.failed", "auth.throttle", "Hello", "posts.title"})

	want := map[store.Ref][]string{
		{Origin: "main", Name: "auth"}:  {"failed", "throttle"},
		{Origin: "main"}:                {"Hello"},
		{Origin: "Blog", Name: "posts"}: {"title"},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("Group = %v, want %v", groups, want)
	}
	refs := Refs(groups)
	if refs[0].Origin != "Blog" {
		t.Fatalf("Refs order = %v", refs)
	}
}

func TestLooksMachineKey(t *testing.T) {
	cases := map[string]bool{
		"auth.failed":  true,
		"user_name":    true,
		"userName":     true,
		"UserName":     true,
		"hello":        true,
		"my-key":       true,
		"Welcome":      false,
		"Welcome back": false,
		"Hello World":  false,
	}
	for key, want := range cases {
		if got := LooksMachineKey(key); got != want {
			t.Errorf("LooksMachineKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestIsPluralization(t *testing.T) {
	cases := map[string]bool{
		"{0} No posts|{1} :count post|[2,*] :count posts": true,
		"{0} none|{1} one|{2} two":                        true,
		"apples|oranges":                                  false,
		"Hello {0}":                                       false,
	}
	for text, want := range cases {
		if got := IsPluralization(text); got != want {
			t.Errorf("IsPluralization(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestDisplayText(t *testing.T) {
	cases := map[string]string{
		"Blog::messages.comments.status.approved": "approved",
		"user_profile.display_name":               "display_name",
		"Blog::title":                             "title",
		"plain":                                   "plain",
	}
	for key, want := range cases {
		if got := DisplayText(key); got != want {
			t.Errorf("DisplayText(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestDerivedText(t *testing.T) {
	if got := DerivedText("user_profile.display_name"); got != "Display Name" {
		t.Fatalf("DerivedText = %q", got)
	}
	if got := DerivedText("Welcome back"); got != "Welcome back" {
		t.Fatalf("DerivedText = %q", got)
	}
}
