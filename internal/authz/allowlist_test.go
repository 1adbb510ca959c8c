package authz

import "testing"

func TestParseAllowListNormalizesEntries(t *testing.T) {
	list := ParseAllowList(" Admin , ops ,, OPS ,  ")
	if list.Size() != 2 {
		t.Fatalf("size want 2 got %d", list.Size())
	}
	if !list.Allowed("admin") {
		t.Fatalf("admin should be allowed")
	}
	if !list.Allowed("ops") {
		t.Fatalf("ops should be allowed")
	}
}

func TestAllowedIgnoresCase(t *testing.T) {
	list := ParseAllowList("admin,Second")
	cases := []string{"admin", "ADMIN", "Admin", "second", "SECOND", "  second  "}
	for _, handle := range cases {
		if !list.Allowed(handle) {
			t.Fatalf("handle %q should be allowed", handle)
		}
	}
}

func TestAllowedRejectsUnknownAndEmpty(t *testing.T) {
	list := ParseAllowList("admin")
	if list.Allowed("root") {
		t.Fatalf("root should be rejected")
	}
	if list.Allowed("") {
		t.Fatalf("empty handle should be rejected")
	}
	if list.Allowed("   ") {
		t.Fatalf("blank handle should be rejected")
	}
}

func TestAllowedOnEmptyList(t *testing.T) {
	list := ParseAllowList("")
	if list.Size() != 0 {
		t.Fatalf("size want 0 got %d", list.Size())
	}
	if list.Allowed("admin") {
		t.Fatalf("empty list should reject everyone")
	}

	var nilList *AllowList
	if nilList.Allowed("admin") {
		t.Fatalf("nil list should reject everyone")
	}
}
