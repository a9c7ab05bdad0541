package catalog

import (
	"time"

	"gorm.io/datatypes"
)

type PriceRange string

const (
	PriceCheap    PriceRange = "CHEAP"
	PriceModerate PriceRange = "MODERATE"
	PricePricey   PriceRange = "PRICEY"
	PriceLuxury   PriceRange = "LUXURY"
)

type Restaurant struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Address     string     `gorm:"column:address" json:"address"`
	Phone       string     `gorm:"column:phone" json:"phone"`
	Summary     string     `gorm:"column:summary" json:"summary"`
	Category1   string     `gorm:"column:category1;index" json:"category1"`
	Category2   string     `gorm:"column:category2" json:"category2"`
	Category3   string     `gorm:"column:category3" json:"category3"`
	PriceRange  PriceRange `gorm:"column:price_range" json:"price_range"`
	Rating      *float64   `gorm:"column:rating" json:"rating,omitempty"`
	ReviewCount int        `gorm:"not null;default:0;column:review_count" json:"review_count"`
	Latitude    float64    `gorm:"not null;column:latitude;index:idx_restaurant_geo" json:"latitude"`
	Longitude   float64    `gorm:"not null;column:longitude;index:idx_restaurant_geo" json:"longitude"`
	WebsiteURL  string     `gorm:"column:website_url" json:"website_url"`

	Images datatypes.JSON `gorm:"type:jsonb;column:images" json:"images,omitempty"`
	Menu   datatypes.JSON `gorm:"type:jsonb;column:menu" json:"menu,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Restaurant) TableName() string { return "restaurant" }

// HasExternalSignal reports whether the restaurant carries any rating
// signal from outside the app (used for retrieval expansion decisions).
func (r *Restaurant) HasExternalSignal() bool {
	return (r.Rating != nil && *r.Rating > 0) || r.ReviewCount > 0
}

type Tag struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null;column:name" json:"name"`
}

func (Tag) TableName() string { return "tag" }

type RestaurantTag struct {
	RestaurantID int64   `gorm:"primaryKey;column:restaurant_id" json:"restaurant_id"`
	TagID        int64   `gorm:"primaryKey;column:tag_id" json:"tag_id"`
	Weight       float64 `gorm:"not null;default:1;column:weight" json:"weight"`
	Confidence   float64 `gorm:"not null;default:1;column:confidence" json:"confidence"`
}

func (RestaurantTag) TableName() string { return "restaurant_tag" }

// RestaurantHour is one weekly opening interval. Times are minutes from
// midnight local to the restaurant; closeMin may exceed 24h*60 for
// intervals that run past midnight.
type RestaurantHour struct {
	ID           int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RestaurantID int64 `gorm:"not null;index;column:restaurant_id" json:"restaurant_id"`
	DayOfWeek    int   `gorm:"not null;column:day_of_week" json:"day_of_week"` // 0 = Sunday
	OpenMin      int   `gorm:"not null;column:open_min" json:"open_min"`
	CloseMin     int   `gorm:"not null;column:close_min" json:"close_min"`
	Is24h        bool  `gorm:"not null;default:false;column:is_24h" json:"is_24h"`
}

func (RestaurantHour) TableName() string { return "restaurant_hour" }

// OpenAt evaluates one interval against a wall-clock instant.
func (h *RestaurantHour) OpenAt(t time.Time) bool {
	if h.Is24h {
		return int(t.Weekday()) == h.DayOfWeek
	}
	minutes := t.Hour()*60 + t.Minute()
	day := int(t.Weekday())
	if day == h.DayOfWeek && minutes >= h.OpenMin && minutes < h.CloseMin {
		return true
	}
	// interval spilling past midnight from the previous day
	prev := (h.DayOfWeek + 1) % 7
	if day == prev && h.CloseMin > 24*60 && minutes < h.CloseMin-24*60 {
		return true
	}
	return false
}
