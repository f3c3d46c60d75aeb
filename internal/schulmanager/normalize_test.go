/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schulmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/schulfunk/schulfunk/internal/timetable"
)

func TestBuildDocumentDoubleMerge(t *testing.T) {
	cells := []RawCell{
		{Period: 0, Day: 0, Subject: "M L2", Room: "A113", Teacher: "Fr. Weber"},
		{Period: 1, Day: 0, Subject: "M L2", Room: "A113", Teacher: "Fr. Weber"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Monday) != 1 {
		t.Fatalf("got %d slots, want 1", len(doc.Monday))
	}
	slot := doc.Monday[0]
	if !slot.Double {
		t.Error("merged run should be marked double")
	}
	if slot.Subject != "Mathematik LK 2" {
		t.Errorf("abbreviation not expanded: %q", slot.Subject)
	}
	if slot.Start.Minutes() != 7*60+50 || slot.End.Minutes() != 9*60+20 {
		t.Errorf("merged window wrong: %s-%s", slot.Start, slot.End)
	}
}

func TestBuildDocumentGapInsertion(t *testing.T) {
	cells := []RawCell{
		{Period: 1, Day: 2, Subject: "PH L1", Room: "C101", Teacher: "Hr. Brandt"},
		{Period: 4, Day: 2, Subject: "GE G2", Room: "B7", Teacher: "Fr. Ernst"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}

	if len(doc.Wednesday) != 4 {
		t.Fatalf("got %d slots, want lesson + 2 gaps + lesson", len(doc.Wednesday))
	}
	if !doc.Wednesday[1].IsGap() || !doc.Wednesday[2].IsGap() {
		t.Errorf("middle slots should be gaps: %+v", doc.Wednesday)
	}
	// Gap placeholders take the skipped bell periods.
	if doc.Wednesday[1].Start.Minutes() != 9*60+40 {
		t.Errorf("first gap at %s", doc.Wednesday[1].Start)
	}
	if doc.Wednesday[3].Subject != "Geschichte GK 2" {
		t.Errorf("got %q", doc.Wednesday[3].Subject)
	}
}

func TestBuildDocumentNoTrailingGaps(t *testing.T) {
	cells := []RawCell{
		{Period: 0, Day: 0, Subject: "D G4", Room: "B2", Teacher: "Fr. Roth"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Monday) != 1 {
		t.Errorf("single lesson day should stay a single slot: %+v", doc.Monday)
	}
}

func TestBuildDocumentCancelled(t *testing.T) {
	cells := []RawCell{
		{Period: 2, Day: 4, Subject: "SP G5", Room: "Halle 2", Teacher: "Fr. Vogt", Cancelled: true, Changed: true},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}

	// A cancelled cell still occupies its slot; the cancellation is a
	// separate exception record.
	if len(doc.Friday) != 1 || doc.Friday[0].Subject != "Sport GK 5" {
		t.Errorf("lesson slot missing: %+v", doc.Friday)
	}
	if len(doc.Exceptions) != 1 {
		t.Fatalf("got %d exceptions", len(doc.Exceptions))
	}
	exc := doc.Exceptions[0]
	if exc.Day != timetable.Friday || exc.Subject != "Sport GK 5" || !exc.Cancelled {
		t.Errorf("exception wrong: %+v", exc)
	}
}

func TestBuildDocumentUnknownSubjectKeptVerbatim(t *testing.T) {
	cells := []RawCell{
		{Period: 0, Day: 1, Subject: "AG Chor", Room: "Aula", Teacher: "Hr. Fink"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Tuesday[0].Subject != "AG Chor" {
		t.Errorf("got %q", doc.Tuesday[0].Subject)
	}
}

func TestBuildDocumentDoubleSpaceAbbreviation(t *testing.T) {
	cells := []RawCell{
		{Period: 0, Day: 0, Subject: "M  L2", Room: "A113", Teacher: "Fr. Weber"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Monday[0].Subject != "Mathematik LK 2" {
		t.Errorf("double space not collapsed: %q", doc.Monday[0].Subject)
	}
}

func TestBuildDocumentNonAdjacentSameSubjectNotMerged(t *testing.T) {
	cells := []RawCell{
		{Period: 0, Day: 0, Subject: "E5 G3", Room: "B204", Teacher: "Hr. Krause"},
		{Period: 2, Day: 0, Subject: "E5 G3", Room: "B204", Teacher: "Hr. Krause"},
	}
	doc, err := BuildDocument(cells, defaultSubjects)
	if err != nil {
		t.Fatal(err)
	}
	// Period 1 sits between the two, so they stay separate with a gap.
	if len(doc.Monday) != 3 {
		t.Fatalf("got %d slots: %+v", len(doc.Monday), doc.Monday)
	}
	if doc.Monday[0].Double || doc.Monday[2].Double {
		t.Error("non-adjacent runs must not merge")
	}
	if !doc.Monday[1].IsGap() {
		t.Error("skipped period should become a gap")
	}
}

func TestBuildDocumentRejectsOutOfRangeCells(t *testing.T) {
	if _, err := BuildDocument([]RawCell{{Period: 12, Day: 0, Subject: "M L2"}}, nil); err == nil {
		t.Error("period 12 should be rejected")
	}
	if _, err := BuildDocument([]RawCell{{Period: 0, Day: 5, Subject: "M L2"}}, nil); err == nil {
		t.Error("day 5 should be rejected")
	}
}

func TestLoadSubjectMapDefault(t *testing.T) {
	subjects, err := LoadSubjectMap("")
	if err != nil {
		t.Fatal(err)
	}
	if subjects["PH L1"] != "Physik LK 1" {
		t.Errorf("got %q", subjects["PH L1"])
	}
	// The returned map is a copy; mutating it must not leak into defaults.
	subjects["PH L1"] = "changed"
	if defaultSubjects["PH L1"] != "Physik LK 1" {
		t.Error("default map mutated")
	}
}

func TestLoadSubjectMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subjects.yaml")
	content := "\"BI G1\": Biologie GK 1\n\"CH L1\": Chemie LK 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	subjects, err := LoadSubjectMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if subjects["BI G1"] != "Biologie GK 1" || subjects["CH L1"] != "Chemie LK 1" {
		t.Errorf("got %+v", subjects)
	}
	// A custom file replaces the defaults entirely.
	if _, ok := subjects["M L2"]; ok {
		t.Error("defaults should not leak into a custom map")
	}
}

func TestLoadSubjectMapMissingFile(t *testing.T) {
	if _, err := LoadSubjectMap(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error")
	}
}
