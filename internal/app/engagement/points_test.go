package engagement_test

import (
	"testing"
	"time"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/domain"
)

// ═══════════════════════════════════════════════════════════════════════════
// Point Table Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestStreakBonusPercent(t *testing.T) {
	tests := []struct {
		streak int
		want   int
	}{
		{0, 0}, {2, 0}, {3, 10}, {6, 10}, {7, 25}, {13, 25},
		{14, 40}, {29, 40}, {30, 60}, {59, 60}, {60, 80}, {99, 80},
		{100, 100}, {365, 100},
	}
	for _, tt := range tests {
		if got := engagement.StreakBonusPercent(tt.streak); got != tt.want {
			t.Errorf("StreakBonusPercent(%d) = %d, want %d", tt.streak, got, tt.want)
		}
	}
}

func TestStreakBonus_Floors(t *testing.T) {
	tests := []struct {
		base, streak, want int
	}{
		{3, 7, 0},   // 0.75
		{5, 7, 1},   // 1.25
		{5, 3, 0},   // 0.5
		{5, 30, 3},  // 3.0
		{3, 100, 3}, // 3.0
		{1, 60, 0},  // 0.8
	}
	for _, tt := range tests {
		if got := engagement.StreakBonus(tt.base, tt.streak); got != tt.want {
			t.Errorf("StreakBonus(%d, %d) = %d, want %d", tt.base, tt.streak, got, tt.want)
		}
	}
}

func TestStreakTiers_Copy(t *testing.T) {
	tiers := engagement.StreakTiers()
	tiers[0].Percent = 0
	if engagement.StreakBonusPercent(100) != 100 {
		t.Error("mutating StreakTiers() must not change the table")
	}
}

func TestDailyGoalBonus(t *testing.T) {
	for base, want := range map[int]int{1: 0, 3: 1, 5: 2} {
		if got := engagement.DailyGoalBonus(base); got != want {
			t.Errorf("DailyGoalBonus(%d) = %d, want %d", base, got, want)
		}
	}
}

func TestDailyProgress(t *testing.T) {
	tests := []struct {
		name       string
		tasks      int
		goal       int
		alreadyMet bool
		wantMet    bool
		wantBonus  int
	}{
		{"below goal", 2, 3, false, false, 0},
		{"crossing", 3, 3, false, true, 2},
		{"already met", 4, 3, true, true, 0},
		{"goal lowered later", 5, 3, false, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			met, bonus := engagement.DailyProgress(tt.tasks, tt.goal, tt.alreadyMet, 5)
			if met != tt.wantMet || bonus != tt.wantBonus {
				t.Errorf("DailyProgress = (%v, %d), want (%v, %d)", met, bonus, tt.wantMet, tt.wantBonus)
			}
		})
	}
}

func TestIsBonusCategory(t *testing.T) {
	list := engagement.DefaultBonusCategories
	tests := map[string]bool{
		"Work":    true,
		"work":    true,
		" HEALTH": true,
		"Finance": true,
		"Hobby":   false,
		"":        false,
	}
	for cat, want := range tests {
		if got := engagement.IsBonusCategory(cat, list); got != want {
			t.Errorf("IsBonusCategory(%q) = %v, want %v", cat, got, want)
		}
	}
}

func TestBasePoints_Unknown(t *testing.T) {
	if got := engagement.BasePoints(""); got != 3 {
		t.Errorf("BasePoints(\"\") = %d, want 3", got)
	}
	if got := engagement.BasePoints(domain.ParseTaskSize(" LARGE ")); got != 5 {
		t.Errorf("BasePoints(LARGE) = %d, want 5", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNextStreak(t *testing.T) {
	jan5 := at(2025, 1, 5, 0)
	tests := []struct {
		name    string
		last    int // days before jan5; -1 = never
		current int
		want    int
	}{
		{"first ever", -1, 0, 1},
		{"same day", 0, 4, 4},
		{"next day", 1, 4, 5},
		{"two day gap", 2, 4, 1},
		{"long gap", 30, 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var last time.Time
			if tt.last >= 0 {
				last = jan5.AddDate(0, 0, -tt.last)
			}
			if got := engagement.NextStreak(last, jan5, tt.current); got != tt.want {
				t.Errorf("NextStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestApplyStreak_KeepsLongest(t *testing.T) {
	s := domain.UserStats{CurrentStreakDays: 2, LongestStreakDays: 10, LastCompletionDate: at(2025, 1, 1, 0)}

	engagement.ApplyStreak(&s, at(2025, 1, 2, 15))
	if s.CurrentStreakDays != 3 || s.LongestStreakDays != 10 {
		t.Errorf("after next day = %d/%d, want 3/10", s.CurrentStreakDays, s.LongestStreakDays)
	}
	if !s.LastCompletionDate.Equal(at(2025, 1, 2, 0)) {
		t.Errorf("last = %v, want midnight of Jan 2", s.LastCompletionDate)
	}

	s = domain.UserStats{CurrentStreakDays: 10, LongestStreakDays: 10, LastCompletionDate: at(2025, 1, 1, 0)}
	engagement.ApplyStreak(&s, at(2025, 1, 2, 0))
	if s.LongestStreakDays != 11 {
		t.Errorf("longest = %d, want 11", s.LongestStreakDays)
	}
}

func TestLiveStreak(t *testing.T) {
	s := domain.UserStats{CurrentStreakDays: 6, LastCompletionDate: at(2025, 1, 10, 0)}
	tests := []struct {
		day  int
		want int
	}{
		{10, 6}, {11, 6}, {12, 0}, {20, 0},
	}
	for _, tt := range tests {
		if got := engagement.LiveStreak(s, at(2025, 1, tt.day, 8)); got != tt.want {
			t.Errorf("LiveStreak(Jan %d) = %d, want %d", tt.day, got, tt.want)
		}
	}
	if got := engagement.LiveStreak(domain.DefaultUserStats(), at(2025, 1, 1, 0)); got != 0 {
		t.Errorf("LiveStreak(never) = %d, want 0", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLevelFor(t *testing.T) {
	tests := []struct {
		points     int
		wantLevel  int
		wantToNext int
	}{
		{0, 1, 100},
		{99, 1, 1},
		{100, 2, 150},
		{249, 2, 1},
		{250, 3, 250},
		{1000, 5, 750},
		{164999, 30, 1},
		{165000, 31, 0},
		{1_000_000, 31, 0},
	}
	for _, tt := range tests {
		level, toNext := engagement.LevelFor(tt.points)
		if level != tt.wantLevel || toNext != tt.wantToNext {
			t.Errorf("LevelFor(%d) = (%d, %d), want (%d, %d)", tt.points, level, toNext, tt.wantLevel, tt.wantToNext)
		}
	}
}

func TestLevelFor_Monotonic(t *testing.T) {
	prev := 1
	for p := 0; p <= 170_000; p += 250 {
		level, _ := engagement.LevelFor(p)
		if level < prev {
			t.Fatalf("LevelFor(%d) = %d < %d", p, level, prev)
		}
		if level > engagement.MaxLevel {
			t.Fatalf("LevelFor(%d) = %d exceeds MaxLevel", p, level)
		}
		prev = level
	}
	if prev != engagement.MaxLevel {
		t.Errorf("final level = %d, want %d", prev, engagement.MaxLevel)
	}
}

func TestPointsForLevel(t *testing.T) {
	tests := map[int]int{0: 0, 1: 0, 2: 100, 5: 1000, 31: 165000, 99: 165000}
	for level, want := range tests {
		if got := engagement.PointsForLevel(level); got != want {
			t.Errorf("PointsForLevel(%d) = %d, want %d", level, got, want)
		}
	}
}

func TestLevelProgressPct(t *testing.T) {
	tests := []struct {
		points int
		want   float64
	}{
		{0, 0},
		{50, 50},
		{175, 50},
		{165000, 100},
	}
	for _, tt := range tests {
		if got := engagement.LevelProgressPct(tt.points); got != tt.want {
			t.Errorf("LevelProgressPct(%d) = %.2f, want %.2f", tt.points, got, tt.want)
		}
	}
}
