package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/plateful/plateful-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, nickname string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Nickname: nickname,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedRestaurant(tb testing.TB, ctx context.Context, tx *gorm.DB, id int64, category string) *types.Restaurant {
	tb.Helper()
	r := &types.Restaurant{
		ID:        id,
		Name:      "place",
		Category1: category,
		Latitude:  37.5012767241426,
		Longitude: 127.039600248343,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed restaurant: %v", err)
	}
	return r
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *types.Tag {
	tb.Helper()
	tag := &types.Tag{Name: name}
	if err := tx.WithContext(ctx).Create(tag).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return tag
}

func LinkTag(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID, tagID int64) {
	tb.Helper()
	link := &types.RestaurantTag{RestaurantID: restaurantID, TagID: tagID, Weight: 1, Confidence: 1}
	if err := tx.WithContext(ctx).Create(link).Error; err != nil {
		tb.Fatalf("link tag: %v", err)
	}
}

func SeedHours(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID int64, day, openMin, closeMin int) {
	tb.Helper()
	h := &types.RestaurantHour{
		RestaurantID: restaurantID,
		DayOfWeek:    day,
		OpenMin:      openMin,
		CloseMin:     closeMin,
	}
	if err := tx.WithContext(ctx).Create(h).Error; err != nil {
		tb.Fatalf("seed hours: %v", err)
	}
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
