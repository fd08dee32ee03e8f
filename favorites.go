package main

import (
	"errors"

	"gorm.io/gorm"
)

// AddFavorite stores a (user, blessing) pair. Already-favorited is a no-op
// success so double submits don't surface errors.
func AddFavorite(userID, blessingID string) error {
	var count int64
	err := db.Model(&UserFavorite{}).
		Where("user_id = ? AND blessing_id = ?", userID, blessingID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := GetBlessingByID(blessingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("blessing not found")
		}
		return err
	}
	return db.Create(&UserFavorite{UserID: userID, BlessingID: blessingID}).Error
}

func RemoveFavorite(userID, blessingID string) error {
	return db.Where("user_id = ? AND blessing_id = ?", userID, blessingID).
		Delete(&UserFavorite{}).Error
}

func GetUserFavorites(userID string) ([]UserFavorite, error) {
	var favorites []UserFavorite
	err := db.Preload("Blessing").Preload("Blessing.Category").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	return favorites, err
}

func IsFavorite(userID, blessingID string) bool {
	var count int64
	db.Model(&UserFavorite{}).
		Where("user_id = ? AND blessing_id = ?", userID, blessingID).
		Count(&count)
	return count > 0
}
