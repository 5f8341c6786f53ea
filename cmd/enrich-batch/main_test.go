package main

import "testing"

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 6f1c2a34-7d1e-4c55-9a0b-1a2b3c4d5e6f, ,0b9d7c1e-2f3a-4b5c-8d6e-7f8091a2b3c4 ")
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 2 || ids[0].String() != "6f1c2a34-7d1e-4c55-9a0b-1a2b3c4d5e6f" {
		t.Errorf("ids = %v", ids)
	}

	if ids, err := parseIDs(""); err != nil || len(ids) != 0 {
		t.Errorf("empty = %v, %v", ids, err)
	}
	if _, err := parseIDs("abc"); err == nil {
		t.Error("expected error for malformed id")
	}
}
