package data

import (
	"sync"

	"gorm.io/gorm"
)

// Setting is one row of the shared settings table.
type Setting struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:128;uniqueIndex"`
	Value string `gorm:"type:text"`
}

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from the database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Name] = s.Value
	}
	ReplaceSettings(values)
	return nil
}

// ReplaceSettings swaps the whole cache. Used by LoadSettings and tests.
func ReplaceSettings(values map[string]string) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsCache = values
}

// GetSetting retrieves a setting value from cache (call LoadSettings first)
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}
