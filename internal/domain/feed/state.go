package feed

import (
	"time"

	"github.com/google/uuid"
)

// Swipe actions and interaction event types. lastAction only ever holds
// one of the swipe actions; the event log records everything.
const (
	ActionSelect  = "SELECT"
	ActionDislike = "DISLIKE"
	ActionHold    = "HOLD"

	EventSelect        = "SELECT"
	EventDislike       = "DISLIKE"
	EventHold          = "HOLD"
	EventSave          = "SAVE"
	EventUnsave        = "UNSAVE"
	EventView          = "VIEW"
	EventShare         = "SHARE"
	EventVisitFeedback = "VISIT_FEEDBACK"
)

// Visit feedback satisfaction values.
const (
	SatisfactionLike    = "LIKE"
	SatisfactionNeutral = "NEUTRAL"
	SatisfactionDislike = "DISLIKE"
)

// Preference scores are clamped to this band at the storage layer.
const (
	PrefScoreMin = -10.0
	PrefScoreMax = 10.0
)

// RestaurantPrefState is the per-(user, restaurant) preference
// accumulator. One row per pair, mutated only through the atomic
// conditional upsert in the repo layer.
type RestaurantPrefState struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_pref_state_user_restaurant;column:user_id" json:"user_id"`
	RestaurantID int64     `gorm:"not null;uniqueIndex:uq_pref_state_user_restaurant;column:restaurant_id" json:"restaurant_id"`

	IsSaved       bool       `gorm:"not null;default:false;column:is_saved" json:"is_saved"`
	LastAction    *string    `gorm:"column:last_action" json:"last_action,omitempty"`
	LastActionAt  *time.Time `gorm:"column:last_action_at" json:"last_action_at,omitempty"`
	CooldownUntil *time.Time `gorm:"column:cooldown_until" json:"cooldown_until,omitempty"`
	ViewCount     int        `gorm:"not null;default:0;column:view_count" json:"view_count"`
	ShareCount    int        `gorm:"not null;default:0;column:share_count" json:"share_count"`
	PrefScore     float64    `gorm:"type:decimal(6,3);not null;default:0;column:pref_score" json:"pref_score"`
	IsVisited     *bool      `gorm:"column:is_visited" json:"is_visited,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RestaurantPrefState) TableName() string { return "restaurant_pref_state" }

// OnCooldown reports whether the pair is suppressed from retrieval.
func (s *RestaurantPrefState) OnCooldown(now time.Time) bool {
	return s != nil && s.CooldownUntil != nil && s.CooldownUntil.After(now)
}

// RestaurantInteraction is the append-only event log. Rows are never
// updated or deleted.
type RestaurantInteraction struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_interaction_user_time;column:user_id" json:"user_id"`
	RestaurantID int64     `gorm:"not null;index;column:restaurant_id" json:"restaurant_id"`
	EventType    string    `gorm:"not null;column:event_type" json:"event_type"`
	CreatedAt    time.Time `gorm:"not null;default:now();index:idx_interaction_user_time" json:"created_at"`
}

func (RestaurantInteraction) TableName() string { return "restaurant_interaction" }

// UserTagPref accumulates taste signal per (user, tag); fed to the
// score engine as the user's tag preference vector.
type UserTagPref struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_tag_pref_user_tag;column:user_id" json:"user_id"`
	TagID      int64     `gorm:"not null;uniqueIndex:uq_tag_pref_user_tag;column:tag_id" json:"tag_id"`
	Score      float64   `gorm:"not null;default:0;column:score" json:"score"`
	Confidence float64   `gorm:"not null;default:0;column:confidence" json:"confidence"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserTagPref) TableName() string { return "user_tag_pref" }
