package domain_test

import (
	"testing"
	"time"

	"timeblocks/internal/modules/countdown/domain"
)

func config(start, target string) domain.Configuration {
	s, err := domain.ParseDate(start)
	if err != nil {
		panic(err)
	}
	e, err := domain.ParseDate(target)
	if err != nil {
		panic(err)
	}
	return domain.Configuration{Topic: "t", StartDate: s, TargetDate: e}
}

func TestProjectMidRange(t *testing.T) {
	t.Parallel()
	stats := domain.Project(config("2024-01-01", "2024-01-11"), domain.NewDate(2024, time.January, 5))
	want := domain.Stats{TotalDays: 10, PassedDays: 4, RemainingDays: 6, IsValid: true}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestProjectCountsCenturiesExactly(t *testing.T) {
	t.Parallel()
	stats := domain.Project(config("1700-01-01", "2100-01-01"), domain.NewDate(1700, time.January, 1))
	want := domain.Stats{TotalDays: 146097, PassedDays: 0, RemainingDays: 146097, IsValid: true}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
	if got := domain.NewDate(1, time.January, 1).DaysUntil(domain.NewDate(9999, time.December, 31)); got != 3652058 {
		t.Fatalf("expected 3652058 days across the full year range, got %d", got)
	}
}

func TestProjectEmptyRangeIsInvalid(t *testing.T) {
	t.Parallel()
	stats := domain.Project(config("2024-06-01", "2024-06-01"), domain.NewDate(2024, time.June, 1))
	if stats.IsValid || stats.TotalDays != 0 {
		t.Fatalf("equal dates must be invalid with zero total, got %+v", stats)
	}
}

func TestProjectInvertedRangeIsInvalid(t *testing.T) {
	t.Parallel()
	stats := domain.Project(config("2024-06-10", "2024-06-01"), domain.NewDate(2024, time.June, 5))
	if stats != (domain.Stats{}) {
		t.Fatalf("inverted range must yield zero stats, got %+v", stats)
	}
}

func TestProjectClampsPassedDays(t *testing.T) {
	t.Parallel()
	cfg := config("2024-01-01", "2024-01-11")
	before := domain.Project(cfg, domain.NewDate(2023, time.December, 1))
	if before.PassedDays != 0 || before.RemainingDays != 10 {
		t.Fatalf("today before start should clamp to zero passed, got %+v", before)
	}
	after := domain.Project(cfg, domain.NewDate(2025, time.March, 1))
	if after.PassedDays != 10 || after.RemainingDays != 0 {
		t.Fatalf("today after target should clamp to total, got %+v", after)
	}
}

func TestProjectTotalsAddUp(t *testing.T) {
	t.Parallel()
	start := domain.NewDate(2023, time.February, 20)
	for span := 1; span < 800; span += 37 {
		cfg := domain.Configuration{Topic: "t", StartDate: start, TargetDate: start.AddDays(span)}
		for offset := -5; offset < span+5; offset += 11 {
			stats := domain.Project(cfg, start.AddDays(offset))
			if !stats.IsValid {
				t.Fatalf("span %d should be valid", span)
			}
			if stats.TotalDays != stats.PassedDays+stats.RemainingDays {
				t.Fatalf("span %d offset %d: totals do not add up: %+v", span, offset, stats)
			}
			if stats.PassedDays < 0 || stats.PassedDays > stats.TotalDays {
				t.Fatalf("span %d offset %d: passed out of range: %+v", span, offset, stats)
			}
		}
	}
}

func TestProjectAcrossLeapDay(t *testing.T) {
	t.Parallel()
	stats := domain.Project(config("2024-02-28", "2024-03-31"), domain.NewDate(2024, time.March, 1))
	if stats.TotalDays != 32 || stats.PassedDays != 2 {
		t.Fatalf("unexpected leap-year stats %+v", stats)
	}
}

func TestProjectUnsetDates(t *testing.T) {
	t.Parallel()
	stats := domain.Project(domain.Configuration{Topic: "t"}, domain.NewDate(2024, time.January, 1))
	if stats != (domain.Stats{}) {
		t.Fatalf("unset dates must yield zero stats, got %+v", stats)
	}
}
