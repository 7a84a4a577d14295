package extractor

import (
	"testing"

	"github.com/onboardrag/core/internal/domain/ragModel"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"crlf to lf", "line one\r\nline two\r\n", "line one\nline two"},
		{"collapses blank run", "a\n\n\n\n\nb", "a\n\nb"},
		{"collapses runs of spaces", "a    b\tc", "a b c"},
		{"strips nul bytes", "a\x00b", "ab"},
		{"idempotent", "already\n\nclean", "already\n\nclean"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two three", 3},
		{"  leading  and  trailing  ", 3},
	}
	for _, tc := range cases {
		if got := countWords(tc.in); got != tc.want {
			t.Errorf("countWords(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDetectDocumentType(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		title string
		want  ragModel.DocumentType
	}{
		{"onboarding", "Welcome to your onboarding checklist.", "", ragModel.DocTypeOnboarding},
		{"policy", "This document describes our leave policy.", "", ragModel.DocTypePolicy},
		{"training", "A training module for new hires.", "", ragModel.DocTypeTraining},
		{"handbook from title", "general content", "Employee Handbook", ragModel.DocTypeHandbook},
		{"guide", "A quick start guide for the tool.", "", ragModel.DocTypeGuide},
		{"procedure", "Follow this procedure to file an expense.", "", ragModel.DocTypeProcedure},
		{"fallback general", "nothing recognizable here", "", ragModel.DocTypeGeneral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectDocumentType(tc.text, tc.title); got != tc.want {
				t.Errorf("detectDocumentType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	english := "The quick brown fox is in the garden and the dog is for play."
	if got := detectLanguage(english); got != ragModel.LanguageEnglish {
		t.Errorf("expected English to be detected, got %q", got)
	}
	unknown := "Lorem ipsum dolor sit amet consectetur"
	if got := detectLanguage(unknown); got != ragModel.LanguageUnknown {
		t.Errorf("expected unrecognized text to be unknown, got %q", got)
	}
}

func TestExtractTags(t *testing.T) {
	got := extractTags("benefits, pto; remote-work", "HR Policies")
	want := []string{"benefits", "pto", "remote-work", "HR Policies"}
	if len(got) != len(want) {
		t.Fatalf("extractTags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractSections(t *testing.T) {
	text := "ONBOARDING OVERVIEW\nWelcome aboard, read this first.\n\n1. Getting Started\nSet up your laptop.\n\n2. Requesting Access\nRequest access to core systems."
	sections := extractSections(text)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %+v", len(sections), sections)
	}
	if sections[0].Title != "ONBOARDING OVERVIEW" || sections[0].Level != 1 {
		t.Errorf("section 0 = %+v", sections[0])
	}
	if sections[1].Title != "1. Getting Started" || sections[1].Level != 1 {
		t.Errorf("section 1 = %+v", sections[1])
	}
	if sections[2].Title != "2. Requesting Access" || sections[2].Level != 1 {
		t.Errorf("section 2 = %+v", sections[2])
	}
}

func TestDeriveTitleFromFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"employee-handbook.pdf", "Employee Handbook"},
		{"remote_work_policy.docx", "Remote Work Policy"},
		{"README", "README"},
	}
	for _, tc := range cases {
		if got := deriveTitleFromFilename(tc.in); got != tc.want {
			t.Errorf("deriveTitleFromFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractOther_PlainText(t *testing.T) {
	data := []byte("Leave Policy\n\nThis document describes the company's paid time off policy for new hires.\n")
	result, err := ExtractOther(data, "leave-policy.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text == "" {
		t.Fatal("expected non-empty extracted text")
	}
	if result.WordCount == 0 {
		t.Error("expected a positive word count")
	}
	if result.Metadata.DocumentType != ragModel.DocTypePolicy {
		t.Errorf("DocumentType = %q, want %q", result.Metadata.DocumentType, ragModel.DocTypePolicy)
	}
}

func TestExtractOther_EmptyTextIsExtractFailed(t *testing.T) {
	_, err := ExtractOther([]byte("   \n\n  "), "empty.txt")
	if err == nil {
		t.Fatal("expected an error for an empty document")
	}
}
