package redact

import (
	"regexp"
	"strings"
	"sync"
	"testing"
)

var placeholderRe = regexp.MustCompile(`\[[A-Z0-9]+:[0-9a-f]{4}\]`)

func TestRedact_Patterns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		gone  string
		typ   string
	}{
		{"email", "contact ada@example.com today", "ada@example.com", "[EMAIL:"},
		{"phone", "call (555) 123-4567 after 5", "123-4567", "[PHONE:"},
		{"iso date", "born 1985-03-14", "1985-03-14", "[DATE:"},
		{"slash date", "seen 03/14/2020", "03/14/2020", "[DATE:"},
		{"ssn", "ssn 123-45-6789 on file", "123-45-6789", "[SSN:"},
		{"ipv4", "from 192.168.1.20", "192.168.1.20", "[IPV4:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(true, nil)
			got := r.Redact(tt.input)
			if strings.Contains(got, tt.gone) {
				t.Errorf("Redact(%q) = %q, still contains %q", tt.input, got, tt.gone)
			}
			if !strings.Contains(got, tt.typ) {
				t.Errorf("Redact(%q) = %q, want placeholder %s...]", tt.input, got, tt.typ)
			}
		})
	}
}

func TestRedact_Correlation(t *testing.T) {
	r := New(true, []string{"email"})

	a := r.Redact("from ada@example.com")
	b := r.Redact("reply to ada@example.com")
	c := r.Redact("cc bob@example.com")

	pa := placeholderRe.FindString(a)
	pb := placeholderRe.FindString(b)
	pc := placeholderRe.FindString(c)
	if pa == "" || pa != pb {
		t.Errorf("same value gave %q and %q", pa, pb)
	}
	if pa == pc {
		t.Errorf("different values share placeholder %q", pa)
	}
	if len(r.Seen()) != 2 {
		t.Errorf("Seen() has %d entries, want 2", len(r.Seen()))
	}

	r.Reset()
	if len(r.Seen()) != 0 {
		t.Error("Reset did not clear mappings")
	}
}

func TestRedact_Literals(t *testing.T) {
	r := New(true, nil)

	got := r.Redact("Patient ADA LOVELACE (Ada Lovelace) reports pain", "Ada Lovelace", "  ")
	if strings.Contains(strings.ToLower(got), "lovelace") {
		t.Fatalf("literal not redacted: %q", got)
	}
	if n := strings.Count(got, "[NAME:"); n != 2 {
		t.Errorf("got %d NAME placeholders in %q, want 2", n, got)
	}
	if phs := placeholderRe.FindAllString(got, -1); len(phs) != 2 || phs[0] != phs[1] {
		t.Errorf("case variants should share a placeholder: %v", phs)
	}
}

func TestRedact_LongestLiteralFirst(t *testing.T) {
	r := New(true, nil)
	got := r.Redact("Ada Lovelace", "Ada", "Ada Lovelace")
	if got != r.Redact("Ada Lovelace", "Ada Lovelace") {
		t.Errorf("full name should be replaced as one unit, got %q", got)
	}
	if strings.Contains(got, "Lovelace") {
		t.Errorf("got %q", got)
	}
}

func TestRedact_Disabled(t *testing.T) {
	r := New(false, nil)
	in := "ada@example.com 1985-03-14 Ada"
	if got := r.Redact(in, "Ada"); got != in {
		t.Errorf("disabled redactor changed text: %q", got)
	}

	var nilR *Redactor
	if nilR.Enabled() {
		t.Error("nil redactor reports enabled")
	}
}

func TestRedact_SelectedPatternsOnly(t *testing.T) {
	r := New(true, []string{"ssn", "bogus"})
	got := r.Redact("123-45-6789 ada@example.com")
	if strings.Contains(got, "123-45-6789") {
		t.Errorf("ssn not redacted: %q", got)
	}
	if !strings.Contains(got, "ada@example.com") {
		t.Errorf("email redacted though not selected: %q", got)
	}
}

func TestGetPatterns_Order(t *testing.T) {
	got := GetPatterns([]string{"ipv4", "date", "phone", "ssn", "email"})
	var names []string
	for _, p := range got {
		names = append(names, p.Name)
	}
	want := "email,ssn,phone,date,ipv4"
	if strings.Join(names, ",") != want {
		t.Errorf("order = %v, want %s", names, want)
	}
	if len(GetPatterns([]string{"nope"})) != 0 {
		t.Error("unknown names should be ignored")
	}
}

func TestRedact_Concurrent(t *testing.T) {
	r := New(true, nil)
	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Redact("ada@example.com")
		}(i)
	}
	wg.Wait()
	for _, got := range results[1:] {
		if got != results[0] {
			t.Fatalf("concurrent results differ: %q vs %q", got, results[0])
		}
	}
}
