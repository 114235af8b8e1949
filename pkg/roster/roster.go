// Package roster keeps a local history of players seen on the server, so
// an operator can answer "who was on recently" after everyone logged off.
package roster

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/palworldkit/palcon/pkg/palworld"
)

// Entry is one known player. A row is created on first sighting and
// updated in place afterwards; names can change between sightings, the
// UID is what identifies a player.
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UID       string    `gorm:"uniqueIndex;size:32" json:"playeruid"`
	Name      string    `gorm:"size:64" json:"name"`
	SteamID   string    `gorm:"size:32" json:"steamid"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Sightings uint      `json:"sightings"`
}

// Store wraps the sqlite file holding the roster.
type Store struct {
	db *gorm.DB
}

// Open opens the roster database at path, creating it and its schema on
// first use.
func Open(path string) (*Store, error) {
	// Results go to stdout; keep gorm's own chatter out of the way.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("roster: migrate %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// RecordSighting notes that each player was online at the given time.
func (s *Store) RecordSighting(players []palworld.Player, at time.Time) error {
	for _, p := range players {
		if p.UID == "" {
			continue
		}
		if err := s.recordOne(p, at); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) recordOne(p palworld.Player, at time.Time) error {
	var entry Entry
	err := s.db.Where("uid = ?", p.UID).First(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = Entry{
			UID:       p.UID,
			Name:      p.Name,
			SteamID:   p.SteamID,
			FirstSeen: at,
			LastSeen:  at,
			Sightings: 1,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return fmt.Errorf("roster: create %s: %w", p.UID, err)
		}
	case err != nil:
		return fmt.Errorf("roster: lookup %s: %w", p.UID, err)
	default:
		entry.Name = p.Name
		entry.SteamID = p.SteamID
		entry.LastSeen = at
		entry.Sightings++
		if err := s.db.Save(&entry).Error; err != nil {
			return fmt.Errorf("roster: update %s: %w", p.UID, err)
		}
	}
	return nil
}

// Seen returns every known player, most recently seen first.
func (s *Store) Seen() ([]Entry, error) {
	var entries []Entry
	if err := s.db.Order("last_seen desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("roster: list: %w", err)
	}
	return entries, nil
}

// Lookup finds one player by UID.
func (s *Store) Lookup(uid string) (*Entry, error) {
	var entry Entry
	err := s.db.Where("uid = ?", uid).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("roster: lookup %s: %w", uid, err)
	}
	return &entry, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
