package pattern

import "testing"

func mustCompile(t *testing.T, raw string) *Pattern {
	t.Helper()
	p, err := Compile(raw)
	if err != nil {
		t.Fatalf("Compile(%q): %v", raw, err)
	}
	return p
}

func TestMatches(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"src/auth/**", "src/auth/jwt.rs", true},
		{"src/auth/**", "src/other/jwt.rs", false},
		{"src/*.go", "src/main.go", true},
		{"src/*.go", "src/sub/main.go", false},
		{"**/*.go", "src/sub/main.go", true},
	}
	for _, c := range cases {
		p := mustCompile(t, c.pattern)
		if got := p.Matches(c.path); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestOverlapsReflexiveAndCommutative(t *testing.T) {
	patterns := []string{"src/auth/**", "src/*.go", "**/*.rs", "docs/**", "a/b/c"}
	for _, raw := range patterns {
		p := mustCompile(t, raw)
		if !p.Overlaps(p) {
			t.Errorf("Overlaps(%q, %q) should be reflexively true", raw, raw)
		}
	}
	for _, a := range patterns {
		for _, b := range patterns {
			pa := mustCompile(t, a)
			pb := mustCompile(t, b)
			if pa.Overlaps(pb) != pb.Overlaps(pa) {
				t.Errorf("Overlaps(%q, %q) not commutative", a, b)
			}
		}
	}
}

func TestOverlapsCases(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"src/auth/**", "src/auth/jwt.rs", true},
		{"src/auth/**", "docs/**", false},
		{"src/*.go", "src/main.go", true},
		{"src/*.go", "src/main.rs", false},
		{"**", "anything/at/all", true},
		{"a/**/z", "a/b/c/z", true},
		{"a/**/z", "a/z", true},
		{"a/**", "a", true},
		{"src/auth/jwt.rs", "src/auth/jwt.rs", true},
	}
	for _, c := range cases {
		pa := mustCompile(t, c.a)
		pb := mustCompile(t, c.b)
		if got := pa.Overlaps(pb); got != c.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
