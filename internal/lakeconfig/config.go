package lakeconfig

import "time"

// Config는 데이터 레이크 튜닝 설정
type Config struct {
	Assembler Assembler `yaml:"assembler" json:"assembler"`
	Engine    Engine    `yaml:"engine" json:"engine"`
	Cache     Cache     `yaml:"cache" json:"cache"`
	Schedule  Schedule  `yaml:"schedule" json:"schedule"`
}

// Assembler controls how much history is gathered for one on-demand row
type Assembler struct {
	DaysBack     int `yaml:"days_back" json:"days_back"`         // calendar days before the target
	RequiredRows int `yaml:"required_rows" json:"required_rows"` // rows including the target
}

// RequiredHistory is the number of rows needed before the target
func (a Assembler) RequiredHistory() int {
	return a.RequiredRows - 1
}

// Engine holds feature engine settings
type Engine struct {
	PlaceholderMarket string `yaml:"placeholder_market" json:"placeholder_market"`
}

// Cache holds lookup cache settings
type Cache struct {
	AssetTTL time.Duration `yaml:"asset_ttl" json:"asset_ttl"`
}

// Schedule holds cron expressions (seconds first)
type Schedule struct {
	Ingest   string        `yaml:"ingest" json:"ingest"`
	Featured string        `yaml:"featured" json:"featured"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Assembler: Assembler{
			DaysBack:     30,
			RequiredRows: 26, // 20-day windows plus margin
		},
		Engine: Engine{
			PlaceholderMarket: "000",
		},
		Cache: Cache{
			AssetTTL: 24 * time.Hour,
		},
		Schedule: Schedule{
			Ingest:   "0 0 21 * * 1-5", // 평일 21:00, after B3 publishes the daily file
			Featured: "0 30 21 * * 1-5",
			Timeout:  30 * time.Minute,
		},
	}
}
