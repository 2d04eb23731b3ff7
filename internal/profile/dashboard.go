// Package profile builds player dashboards and registers guest players.
package profile

import (
	"time"

	"github.com/park285/xiangqi-server/internal/domain"
)

const (
	HeatmapDays   = 180
	MaxStreakDays = 365
	ActiveWindow  = 5 * time.Minute
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type UserSummary struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at,omitempty"`
	Active       bool      `json:"active"`
}

type StatsSummary struct {
	Games             int `json:"games"`
	Wins              int `json:"wins"`
	Losses            int `json:"losses"`
	Draws             int `json:"draws"`
	ActiveDays        int `json:"active_days"`
	CurrentStreakDays int `json:"current_streak_days"`
}

type Dashboard struct {
	User    UserSummary  `json:"user"`
	Stats   StatsSummary `json:"stats"`
	Heatmap []DayCount   `json:"heatmap"`
}

// Build summarises u as of now. Days are UTC calendar days; the heatmap runs
// oldest first and ends today.
// 연속 활동일은 오늘부터 거꾸로 센다(최대 MaxStreakDays).
func Build(u *domain.User, now time.Time) Dashboard {
	today := now.UTC().Truncate(24 * time.Hour)
	activity := u.Stats.Activity

	heat := make([]DayCount, 0, HeatmapDays)
	for i := HeatmapDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(domain.DayLayout)
		heat = append(heat, DayCount{Date: day, Count: activity[day]})
	}

	streak := 0
	for d := today; streak < MaxStreakDays; d = d.AddDate(0, 0, -1) {
		if activity[d.Format(domain.DayLayout)] <= 0 {
			break
		}
		streak++
	}

	activeDays := 0
	for _, c := range activity {
		if c > 0 {
			activeDays++
		}
	}

	return Dashboard{
		User: UserSummary{
			ID:           u.ID,
			Username:     u.Username,
			DisplayName:  u.DisplayName,
			CreatedAt:    u.CreatedAt,
			LastActiveAt: u.LastActiveAt,
			Active:       !u.LastActiveAt.IsZero() && now.Sub(u.LastActiveAt) < ActiveWindow,
		},
		Stats: StatsSummary{
			Games:             u.Stats.Games,
			Wins:              u.Stats.Wins,
			Losses:            u.Stats.Losses,
			Draws:             u.Stats.Draws,
			ActiveDays:        activeDays,
			CurrentStreakDays: streak,
		},
		Heatmap: heat,
	}
}
