package provider

import "testing"

// TestLookup_KnownSlugs は全連携先スラッグの検索をテストする。
func TestLookup_KnownSlugs(t *testing.T) {
	slugs := []string{
		"google-calendar",
		"google-business",
		"instagram",
		"messenger",
		"linkedin",
		"microsoft",
	}

	for _, slug := range slugs {
		t.Run(slug, func(t *testing.T) {
			desc, ok := Lookup(slug)
			if !ok {
				t.Fatalf("Lookup(%q) = not found", slug)
			}
			if desc.Slug != slug {
				t.Errorf("desc.Slug = %q, want %q", desc.Slug, slug)
			}
			if desc.Provider == "" {
				t.Error("desc.Provider should not be empty")
			}
			if desc.AuthURL == "" || desc.TokenURL == "" || desc.UserInfoURL == "" {
				t.Error("descriptor endpoints should not be empty")
			}
			if len(desc.Scopes) == 0 {
				t.Error("desc.Scopes should not be empty")
			}
		})
	}
}

// TestLookup_UnknownSlug は未知のスラッグの扱いをテストする。
func TestLookup_UnknownSlug(t *testing.T) {
	for _, slug := range []string{"", "twitter", "Google-Calendar", "google_calendar"} {
		if _, ok := Lookup(slug); ok {
			t.Errorf("Lookup(%q) = found, want not found", slug)
		}
	}
}

// TestDescriptors_DisconnectModes は連携先ごとの解除方式の宣言をテストする。
// 複数アカウント型のカレンダー連携は物理削除、
// ダッシュボード統計に使う連携はソフト切断でレコードを残す。
func TestDescriptors_DisconnectModes(t *testing.T) {
	tests := []struct {
		slug         string
		multiAccount bool
		mode         DisconnectMode
	}{
		{"google-calendar", true, DisconnectDelete},
		{"google-business", false, DisconnectDisable},
		{"instagram", false, DisconnectDisable},
		{"messenger", false, DisconnectDisable},
		{"linkedin", false, DisconnectDisable},
		{"microsoft", true, DisconnectDelete},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			desc, ok := Lookup(tt.slug)
			if !ok {
				t.Fatalf("Lookup(%q) = not found", tt.slug)
			}
			if desc.MultiAccount != tt.multiAccount {
				t.Errorf("MultiAccount = %v, want %v", desc.MultiAccount, tt.multiAccount)
			}
			if desc.DisconnectMode != tt.mode {
				t.Errorf("DisconnectMode = %q, want %q", desc.DisconnectMode, tt.mode)
			}
		})
	}
}

// TestAll_ReturnsCopy はAllの返り値がレジストリのコピーであることをテストする。
func TestAll_ReturnsCopy(t *testing.T) {
	first := All()
	if len(first) != 6 {
		t.Fatalf("All() returned %d descriptors, want 6", len(first))
	}

	first[0].Slug = "mutated"
	if len(first[0].Scopes) > 0 {
		first[0].Scopes[0] = "mutated-scope"
	}

	second := All()
	if second[0].Slug == "mutated" {
		t.Error("mutating the returned slice should not affect the registry")
	}
	if len(second[0].Scopes) > 0 && second[0].Scopes[0] == "mutated-scope" {
		t.Error("mutating Scopes of the returned slice should not affect the registry")
	}
}

// TestDescriptors_UniqueSlugs はスラッグの重複がないことをテストする。
func TestDescriptors_UniqueSlugs(t *testing.T) {
	seen := make(map[string]bool)
	for _, d := range All() {
		if seen[d.Slug] {
			t.Errorf("duplicate slug: %s", d.Slug)
		}
		seen[d.Slug] = true
	}
}
