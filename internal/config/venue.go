package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sanosuguru/venue-ticket-service/internal/domain/venue"
)

// VenueFile は会場レイアウトファイルの内容
type VenueFile struct {
	Name             string      `yaml:"name"`
	HoldLimitSeconds int         `yaml:"hold_limit_seconds"`
	Levels           []LevelFile `yaml:"levels"`
}

// LevelFile はレベル1つ分の定義
type LevelFile struct {
	ID          int    `yaml:"id"`
	Name        string `yaml:"name"`
	Rows        int    `yaml:"rows"`
	SeatsPerRow int    `yaml:"seats_per_row"`
	Price       int    `yaml:"price"`
}

// DefaultVenue は組み込みの会場レイアウト（3レベル120席、仮押さえ60秒）
func DefaultVenue() VenueFile {
	return VenueFile{
		Name:             "default",
		HoldLimitSeconds: 60,
		Levels: []LevelFile{
			{ID: 1, Name: "アリーナ", Rows: 2, SeatsPerRow: 10, Price: 12000},
			{ID: 2, Name: "スタンド", Rows: 4, SeatsPerRow: 20, Price: 8000},
			{ID: 3, Name: "バルコニー", Rows: 2, SeatsPerRow: 10, Price: 5000},
		},
	}
}

// LoadVenue は会場レイアウトをYAMLファイルから読み込む。path が空なら DefaultVenue を返す
func LoadVenue(path string) (VenueFile, error) {
	if path == "" {
		return DefaultVenue(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return VenueFile{}, fmt.Errorf("会場ファイル %s の読み込みに失敗: %w", path, err)
	}

	var f VenueFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return VenueFile{}, fmt.Errorf("会場ファイル %s の解析に失敗: %w", path, err)
	}
	if f.Name == "" {
		f.Name = "default"
	}
	return f, nil
}

// Build は会場設定を作成する
func (f VenueFile) Build() (*venue.Configuration, error) {
	levels := make([]venue.Level, len(f.Levels))
	for i, l := range f.Levels {
		levels[i] = venue.NewLevel(l.ID, l.Name, l.Rows, l.SeatsPerRow, l.Price)
	}
	cfg, err := venue.NewConfiguration(f.HoldLimitSeconds, levels...)
	if err != nil {
		return nil, fmt.Errorf("会場 %s: %w", f.Name, err)
	}
	return cfg, nil
}
