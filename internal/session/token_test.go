package session

import "testing"

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss := NewIssuer()
	tok, err := iss.Issue("p1", "Ada")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, name, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "p1" || name != "Ada" {
		t.Fatalf("got (%q,%q) want (p1,Ada)", id, name)
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a := NewIssuer()
	b := NewIssuer()
	tok, _ := a.Issue("p1", "Ada")
	if _, _, err := b.Verify(tok); err == nil {
		t.Fatal("expected verification under a different key to fail")
	}
}

func TestVerifyRejectsEmpty(t *testing.T) {
	iss := NewIssuer()
	if _, _, err := iss.Verify(""); err == nil {
		t.Fatal("expected empty token to fail verification")
	}
}
