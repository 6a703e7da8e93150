// Package model defines the data models for the task points engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account with its running point balance and the
// medal set earned through achievements.
type User struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Points       int64     `db:"points"`
	BronzeMedal  bool      `db:"bronze_medal"`
	SilverMedal  bool      `db:"silver_medal"`
	GoldMedal    bool      `db:"gold_medal"`
	DiamondMedal bool      `db:"diamond_medal"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Medals returns the user's medal set for point calculation.
func (u *User) Medals() MedalSet {
	return MedalSet{
		Bronze:  u.BronzeMedal,
		Silver:  u.SilverMedal,
		Gold:    u.GoldMedal,
		Diamond: u.DiamondMedal,
	}
}

// MedalSet describes which achievement medals a user holds.
type MedalSet struct {
	Bronze  bool `json:"bronze"`
	Silver  bool `json:"silver"`
	Gold    bool `json:"gold"`
	Diamond bool `json:"diamond"`
}

// Bonus rule types. A completion-typed rule is accepted in the schema but
// deliberately not evaluated by the calculator.
const (
	BonusWordCount  = "word_count"
	BonusDuration   = "duration"
	BonusQuality    = "quality"
	BonusCompletion = "completion"
)

// BonusRule is a single conditional bonus clause within a points rule.
type BonusRule struct {
	Type        string `json:"type"`
	Threshold   int64  `json:"threshold"`
	BonusPoints int64  `json:"bonusPoints"`
	MaxBonus    *int64 `json:"maxBonus,omitempty"`
}

// Multipliers holds the per-axis multiplier tables of a points rule.
// A missing key resolves to 1.0; missing medal keys resolve to the
// builtin medal defaults.
type Multipliers struct {
	Difficulty map[string]float64 `json:"difficulty,omitempty"`
	Quality    map[string]float64 `json:"quality,omitempty"`
	Medal      map[string]float64 `json:"medal,omitempty"`
}

// PointsRule is the configured scoring policy for one (category, activity)
// pair. Rules are managed by a guardian role and read-only to the engine.
type PointsRule struct {
	ID          int64        `db:"id"`
	Category    string       `db:"category"`
	Activity    string       `db:"activity"`
	BasePoints  int64        `db:"base_points"`
	BonusRules  []BonusRule  `db:"bonus_rules"`
	DailyLimit  *int64       `db:"daily_limit"`
	Multipliers *Multipliers `db:"multipliers"`
	IsActive    bool         `db:"is_active"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// BalanceConfig holds the global balance tunables. Exactly one version is
// active at a time; the engine reads the active one.
type BalanceConfig struct {
	ID                      int64     `db:"id"`
	WeeklyAccumulationLimit int64     `db:"weekly_accumulation_limit"`
	BaseGameTimeMinutes     int64     `db:"base_game_time_minutes"`
	PointsToMinutesRatio    int64     `db:"points_to_minutes_ratio"`
	IsActive                bool      `db:"is_active"`
	CreatedAt               time.Time `db:"created_at"`
	UpdatedAt               time.Time `db:"updated_at"`
}

// DailyLimitRecord is the mutable per-user-per-day aggregate. It is
// created lazily on the first award of the day and mutated by every award
// and spend that day.
type DailyLimitRecord struct {
	UserID            int64            `db:"user_id"`
	Date              string           `db:"date"`
	ActivityPoints    map[string]int64 `db:"activity_points"`
	TotalDailyPoints  int64            `db:"total_daily_points"`
	GameTimeUsed      int64            `db:"game_time_used"`
	GameTimeAvailable int64            `db:"game_time_available"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// Ledger entry types.
const (
	EntryTypeEarn  = "earn"
	EntryTypeSpend = "spend"
)

// LedgerEntry is the immutable record of one balance change. Entries are
// append-only and never mutated or deleted.
type LedgerEntry struct {
	ID            int64          `db:"id"`
	UserID        int64          `db:"user_id"`
	Type          string         `db:"type"`
	Amount        int64          `db:"amount"`
	Reason        string         `db:"reason"`
	PreviousTotal int64          `db:"previous_total"`
	NewTotal      int64          `db:"new_total"`
	Metadata      map[string]any `db:"metadata"`
	CreatedAt     time.Time      `db:"created_at"`
}

// Game types for game time exchanges.
const (
	GameTypeNormal      = "normal"
	GameTypeEducational = "educational"
)

// GameTimeExchange records one points-for-game-time purchase.
type GameTimeExchange struct {
	ID             uuid.UUID `db:"id"`
	UserID         int64     `db:"user_id"`
	Date           string    `db:"date"`
	PointsSpent    int64     `db:"points_spent"`
	GameType       string    `db:"game_type"`
	MinutesGranted int64     `db:"minutes_granted"`
	MinutesUsed    int64     `db:"minutes_used"`
	CreatedAt      time.Time `db:"created_at"`
}

// Redemption statuses.
const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)

// Redemption is a prize redemption request. Points are reserved when the
// request is created and refunded if a guardian rejects it.
type Redemption struct {
	ID                uuid.UUID  `db:"id"`
	UserID            int64      `db:"user_id"`
	RewardTitle       string     `db:"reward_title"`
	RewardDescription string     `db:"reward_description"`
	PointsCost        int64      `db:"points_cost"`
	Status            string     `db:"status"`
	RequestedAt       time.Time  `db:"requested_at"`
	ProcessedAt       *time.Time `db:"processed_at"`
	ProcessedBy       *int64     `db:"processed_by"`
	Notes             string     `db:"notes"`
}

// Values for CombinedCheck.LimitedBy.
const (
	LimitedByDaily    = "daily"
	LimitedByWeekly   = "weekly"
	LimitedByActivity = "activity"
	LimitedByNone     = "none"
)

// DailyCheck is the result of a daily limit check.
type DailyCheck struct {
	CanAdd               bool   `json:"canAdd"`
	MaxCanAdd            int64  `json:"maxCanAdd"`
	CurrentDailyTotal    int64  `json:"currentDailyTotal"`
	DailyLimit           int64  `json:"dailyLimit"`
	ActivityLimit        *int64 `json:"activityLimit,omitempty"`
	CurrentActivityTotal *int64 `json:"currentActivityTotal,omitempty"`
	Reason               string `json:"reason,omitempty"`
}

// ActivityCapped reports whether the check failed on the activity-specific
// sub-cap rather than the global daily cap.
func (c *DailyCheck) ActivityCapped() bool {
	return c.ActivityLimit != nil && c.CurrentActivityTotal != nil &&
		*c.CurrentActivityTotal >= *c.ActivityLimit
}

// WeeklyCheck is the result of a weekly accumulation check.
type WeeklyCheck struct {
	CanAdd             bool   `json:"canAdd"`
	MaxCanAdd          int64  `json:"maxCanAdd"`
	CurrentWeeklyTotal int64  `json:"currentWeeklyTotal"`
	WeeklyLimit        int64  `json:"weeklyLimit"`
	WeekStartDate      string `json:"weekStartDate"`
	WeekEndDate        string `json:"weekEndDate"`
	Reason             string `json:"reason,omitempty"`
}

// CombinedCheck merges the daily and weekly checks, keeping the most
// restrictive allowance and which cap bound it.
type CombinedCheck struct {
	CanAdd      bool        `json:"canAdd"`
	MaxCanAdd   int64       `json:"maxCanAdd"`
	DailyCheck  DailyCheck  `json:"dailyCheck"`
	WeeklyCheck WeeklyCheck `json:"weeklyCheck"`
	LimitedBy   string      `json:"limitedBy"`
	Reason      string      `json:"reason,omitempty"`
}

// AwardResult is the outcome of an award operation. Success false with a
// message is a normal outcome (limit reached), not an error.
type AwardResult struct {
	Success        bool   `json:"success"`
	PointsAdded    int64  `json:"pointsAdded"`
	NewDailyTotal  int64  `json:"newDailyTotal"`
	NewWeeklyTotal int64  `json:"newWeeklyTotal"`
	LedgerID       *int64 `json:"ledgerId,omitempty"`
	Message        string `json:"message"`
}

// SpendResult is the outcome of a game time exchange.
type SpendResult struct {
	Success        bool      `json:"success"`
	PointsSpent    int64     `json:"pointsSpent"`
	MinutesGranted int64     `json:"minutesGranted"`
	NewBalance     int64     `json:"newBalance"`
	ExchangeID     uuid.UUID `json:"exchangeId"`
	LedgerID       *int64    `json:"ledgerId,omitempty"`
	Message        string    `json:"message"`
}

// RefundResult is the outcome of a refund credit.
type RefundResult struct {
	Success        bool   `json:"success"`
	PointsRefunded int64  `json:"pointsRefunded"`
	NewBalance     int64  `json:"newBalance"`
	LedgerID       *int64 `json:"ledgerId,omitempty"`
	Message        string `json:"message"`
}
