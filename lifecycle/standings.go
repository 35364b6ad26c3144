package lifecycle

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skillarena/backend/models"
)

type LeaderboardEntry struct {
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
	PhotoURL     string    `json:"photoURL"`
	Wins         int       `json:"wins"`
	Participated int       `json:"participated"`
	WinRate      float64   `json:"winRate"` // percent, one decimal
}

// Leaderboard ranks non-admin users with at least one win by wins, then by
// contests joined, then by name.
func Leaderboard(users []models.User, contests []models.Contest) []LeaderboardEntry {
	wins := make(map[uuid.UUID]int)
	joined := make(map[uuid.UUID]int)
	for _, c := range contests {
		for _, id := range c.Participants {
			joined[id]++
		}
		if c.HasWinner() {
			wins[*c.WinnerID]++
		}
	}

	var out []LeaderboardEntry
	for _, u := range users {
		if u.Role == models.RoleAdmin || wins[u.ID] == 0 {
			continue
		}
		e := LeaderboardEntry{
			UserID:       u.ID,
			Name:         u.Name,
			PhotoURL:     u.PhotoURL,
			Wins:         wins[u.ID],
			Participated: joined[u.ID],
		}
		if e.Participated > 0 {
			rate := decimal.NewFromInt(int64(e.Wins * 100)).Div(decimal.NewFromInt(int64(e.Participated)))
			e.WinRate = rate.Round(1).InexactFloat64()
		}
		out = append(out, e)
	}

	slices.SortFunc(out, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Participated, a.Participated); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

type Statistics struct {
	TotalUsers        int                          `json:"totalUsers"`
	UsersByRole       map[models.Role]int          `json:"usersByRole"`
	TotalContests     int                          `json:"totalContests"`
	ContestsByStatus  map[models.ContestStatus]int `json:"contestsByStatus"`
	ContestsByType    map[models.ContestType]int   `json:"contestsByType"`
	TotalParticipants int                          `json:"totalParticipants"`
	TotalWinners      int                          `json:"totalWinners"`
	TotalPrizeMoney   decimal.Decimal              `json:"totalPrizeMoney"`
	TotalRevenue      decimal.Decimal              `json:"totalRevenue"`
	ContestsPerMonth  []MonthCount                 `json:"contestsPerMonth"`
}

// ComputeStatistics aggregates platform totals. Revenue is the entry fee
// times the participant count of every contest.
func ComputeStatistics(users []models.User, contests []models.Contest) Statistics {
	s := Statistics{
		TotalUsers:       len(users),
		UsersByRole:      make(map[models.Role]int),
		TotalContests:    len(contests),
		ContestsByStatus: make(map[models.ContestStatus]int),
		ContestsByType:   make(map[models.ContestType]int),
		TotalPrizeMoney:  decimal.Zero,
		TotalRevenue:     decimal.Zero,
	}
	for _, u := range users {
		s.UsersByRole[u.Role]++
	}

	perMonth := make(map[string]int)
	for _, c := range contests {
		s.ContestsByStatus[c.Status]++
		s.ContestsByType[c.Type]++
		s.TotalParticipants += len(c.Participants)
		if c.HasWinner() {
			s.TotalWinners++
		}
		s.TotalPrizeMoney = s.TotalPrizeMoney.Add(c.PrizeMoney)
		s.TotalRevenue = s.TotalRevenue.Add(c.Price.Mul(decimal.NewFromInt(int64(len(c.Participants)))))
		perMonth[c.CreatedAt.UTC().Format("2006-01")]++
	}

	for month, n := range perMonth {
		s.ContestsPerMonth = append(s.ContestsPerMonth, MonthCount{Month: month, Count: n})
	}
	slices.SortFunc(s.ContestsPerMonth, func(a, b MonthCount) int {
		return strings.Compare(a.Month, b.Month)
	})
	return s
}

type Winner struct {
	ContestID   uuid.UUID       `json:"contestId"`
	ContestName string          `json:"contestName"`
	ContestType string          `json:"contestType"`
	Image       string          `json:"image"`
	PrizeMoney  decimal.Decimal `json:"prizeMoney"`
	WinnerID    uuid.UUID       `json:"winnerId"`
	WinnerName  string          `json:"winnerName"`
	WinnerPhoto string          `json:"winnerPhoto"`
	DeclaredAt  time.Time       `json:"declaredAt"`
}

// Winners lists declared winners, most recent first.
func Winners(users []models.User, contests []models.Contest) []Winner {
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var out []Winner
	for _, c := range contests {
		if !c.HasWinner() {
			continue
		}
		u := byID[*c.WinnerID]
		out = append(out, Winner{
			ContestID:   c.ID,
			ContestName: c.Name,
			ContestType: string(c.Type),
			Image:       c.Image,
			PrizeMoney:  c.PrizeMoney,
			WinnerID:    *c.WinnerID,
			WinnerName:  u.Name,
			WinnerPhoto: u.PhotoURL,
			DeclaredAt:  c.UpdatedAt,
		})
	}
	slices.SortFunc(out, func(a, b Winner) int {
		return b.DeclaredAt.Compare(a.DeclaredAt)
	})
	return out
}
