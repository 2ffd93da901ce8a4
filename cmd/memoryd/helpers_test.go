package main

import (
	"strings"
	"testing"
	"time"

	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/types"
)

func TestPreviewObjectPrefersEntityOverLiteral(t *testing.T) {
	d := recall.Details{
		Fact:         &types.Fact{ObjectLiteral: "literal-value"},
		ObjectEntity: &types.Entity{CanonicalName: "resolved-entity"},
	}
	if got := previewObject(d); got != "resolved-entity" {
		t.Fatalf("previewObject = %q, want %q", got, "resolved-entity")
	}
}

func TestPreviewObjectFallsBackToLiteral(t *testing.T) {
	d := recall.Details{Fact: &types.Fact{ObjectLiteral: "literal-value"}}
	if got := previewObject(d); got != "literal-value" {
		t.Fatalf("previewObject = %q, want %q", got, "literal-value")
	}
}

func TestBuildSnapshotGroupsBySubjectName(t *testing.T) {
	details := []recall.Details{
		{
			Fact:          &types.Fact{Predicate: "uses", ObjectLiteral: "PostgreSQL"},
			Source:        recall.ScopeProject,
			SubjectEntity: &types.Entity{CanonicalName: "billing-service"},
		},
		{
			Fact:          &types.Fact{Predicate: "owns", ObjectLiteral: "alice"},
			Source:        recall.ScopeGlobal,
			SubjectEntity: &types.Entity{CanonicalName: "billing-service"},
		},
		{
			Fact:   &types.Fact{Predicate: "deprecated"},
			Source: recall.ScopeProject,
		},
	}

	md := buildSnapshot("/repo/billing", details)

	if !strings.Contains(md, "## billing-service") {
		t.Fatalf("snapshot missing grouped heading:\n%s", md)
	}
	if !strings.Contains(md, "**uses** PostgreSQL _(scope: project)_") {
		t.Fatalf("snapshot missing project fact bullet:\n%s", md)
	}
	if !strings.Contains(md, "**owns** alice _(scope: global)_") {
		t.Fatalf("snapshot missing global fact bullet:\n%s", md)
	}
	if !strings.Contains(md, "## unknown") {
		t.Fatalf("snapshot missing fallback heading for nil subject entity:\n%s", md)
	}
}

func TestBuildSnapshotEmptyDetailsProducesPlaceholder(t *testing.T) {
	md := buildSnapshot("/repo/empty", nil)
	if !strings.Contains(md, "No active facts recalled yet") {
		t.Fatalf("expected placeholder line for empty snapshot, got:\n%s", md)
	}
}

func TestParseWhenResolvesRelativeExpression(t *testing.T) {
	got, err := parseWhen("since", "2 days ago")
	if err != nil {
		t.Fatalf("parseWhen returned error: %v", err)
	}
	if got.After(time.Now()) {
		t.Fatalf("parsed time %v should be in the past", got)
	}
	if time.Since(got) < 24*time.Hour {
		t.Fatalf("parsed time %v should be at least a day old", got)
	}
}

func TestParseWhenRejectsGarbage(t *testing.T) {
	if _, err := parseWhen("since", "colorless green ideas sleep furiously"); err == nil {
		t.Fatal("expected an error for an unparseable time expression")
	}
}
