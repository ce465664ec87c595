package db

import (
	"github.com/hanaxu/OrderSong-Go/bot"
	"gorm.io/gorm"
)

// VoiceCacheModel mirrors the voice_caches schema. One row per uploaded
// voice message, keyed by source, track and bitrate.
type VoiceCacheModel struct {
	gorm.Model
	Source   string `gorm:"not null;default:'';index:idx_source_track_bitrate,unique"`
	TrackID  string `gorm:"not null;default:'';index:idx_source_track_bitrate,unique"`
	Bitrate  int    `gorm:"not null;default:0;index:idx_source_track_bitrate,unique"`
	FileID   string `gorm:"not null;default:''"`
	Title    string
	Artist   string
	Duration int
}

func (VoiceCacheModel) TableName() string {
	return "voice_caches"
}

func toInternal(model VoiceCacheModel) *bot.VoiceEntry {
	return &bot.VoiceEntry{
		ID:       model.ID,
		Source:   model.Source,
		TrackID:  model.TrackID,
		Bitrate:  model.Bitrate,
		FileID:   model.FileID,
		Title:    model.Title,
		Artist:   model.Artist,
		Duration: model.Duration,
	}
}

func toModel(entry *bot.VoiceEntry) *VoiceCacheModel {
	if entry == nil {
		return &VoiceCacheModel{}
	}

	model := &VoiceCacheModel{
		Source:   entry.Source,
		TrackID:  entry.TrackID,
		Bitrate:  entry.Bitrate,
		FileID:   entry.FileID,
		Title:    entry.Title,
		Artist:   entry.Artist,
		Duration: entry.Duration,
	}
	if entry.ID != 0 {
		model.ID = entry.ID
	}
	return model
}
