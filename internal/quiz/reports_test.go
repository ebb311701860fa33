package quiz

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestBuildInstructorReport(t *testing.T) {
	var events []AnswerEvent
	events = append(events, answers("alice", CategoryPhishing, 3, 1)...)
	events = append(events, answers("bob", CategoryMalware, 1, 1)...)

	report := BuildInstructorReport(events, "", baseTime)
	if report.TotalResponses != 6 || report.TotalUsers != 2 {
		t.Fatalf("unexpected totals %+v", report)
	}
	if report.ByUser["alice"].Accuracy != 75 || report.ByCategory[CategoryMalware].Total != 2 {
		t.Fatalf("unexpected rollups %+v", report)
	}

	filtered := BuildInstructorReport(events, CategoryMalware, baseTime)
	if filtered.TotalResponses != 2 || filtered.TotalUsers != 1 || filtered.OverallAccuracy != 50 {
		t.Fatalf("unexpected filtered report %+v", filtered)
	}
}

func TestBuildSummaryReport(t *testing.T) {
	events := []AnswerEvent{
		eventAt(0, true, CategoryPhishing),
		eventAt(time.Minute, true, CategoryPhishing),
	}
	report := BuildSummaryReport("alice", events, baseTime)
	if report.TotalQuestions != 2 || report.OverallAccuracy != 100 || report.TotalStudyTime != 20 {
		t.Fatalf("unexpected summary %+v", report)
	}
	if report.Points != 1000+100+20 {
		t.Fatalf("unexpected points %d", report.Points)
	}
}

func TestWriteEventsCSVMostRecentFirst(t *testing.T) {
	events := []AnswerEvent{
		eventAt(0, false, CategoryPasswords),
		eventAt(time.Hour, true, CategoryPasswords),
	}
	var buf bytes.Buffer
	if err := WriteEventsCSV(&buf, events); err != nil {
		t.Fatalf("WriteEventsCSV returned error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 || !reflect.DeepEqual(records[0], csvHeader) {
		t.Fatalf("unexpected csv %v", records)
	}
	if records[1][3] != "true" || records[1][0] != "2024-03-01T13:00:00Z" {
		t.Fatalf("unexpected first row %v", records[1])
	}
}

func TestWriteEventsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEventsJSON(&buf, []AnswerEvent{eventAt(0, true, CategoryMalware)}); err != nil {
		t.Fatalf("WriteEventsJSON returned error: %v", err)
	}
	var decoded []AnswerEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Category != CategoryMalware {
		t.Fatalf("unexpected decoded events %+v", decoded)
	}
}

func TestRenderCertificate(t *testing.T) {
	certificate := NewCertificate("alice", "Alice Doe", CategorySocialEngineering, 87.5, 16, baseTime)
	doc := string(RenderCertificate(certificate))
	for _, want := range []string{"Alice Doe", "Social Engineering", "87.50%", certificate.CertificateID} {
		if !strings.Contains(doc, want) {
			t.Fatalf("certificate document missing %q:\n%s", want, doc)
		}
	}
}

func TestSortedCategoriesPutsUnknownLast(t *testing.T) {
	keys := SortedCategories(map[Category]CategoryStats{
		CategoryUnknown:  {},
		CategoryMalware:  {},
		CategoryPhishing: {},
	})
	want := []Category{CategoryPhishing, CategoryMalware, CategoryUnknown}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("SortedCategories = %v, want %v", keys, want)
	}
}
