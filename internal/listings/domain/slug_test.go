package domain

import "testing"

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Church Farm Barn":        "church-farm-barn",
		"Château d'Été & Spa":     "chateau-d-ete-spa",
		"  The Old Rectory (B&B) ": "the-old-rectory-b-b",
		"Manor 22":                "manor-22",
		"---":                     "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
