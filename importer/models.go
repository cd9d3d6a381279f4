package importer

import "time"

// Game is the normalized storefront record. Title is the business key: a
// re-import with the same title updates this row, even under another app id.
type Game struct {
	ID            uint    `gorm:"primaryKey"`
	Title         string  `gorm:"uniqueIndex;size:512;not null"`
	Price         float64 `gorm:"not null;default:0"`
	OriginalPrice float64 `gorm:"not null;default:0"`
	Image         string  `gorm:"size:1024"`
	Trailer       string  `gorm:"size:1024"`
	Description   string  `gorm:"type:text"`
	Genre         string  `gorm:"size:512"`
	Section       string  `gorm:"index;size:64"`
	ReleaseDate   string  `gorm:"size:64"`
	Rating        *float64
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type GameSpec struct {
	ID         uint   `gorm:"primaryKey"`
	GameID     uint   `gorm:"uniqueIndex;not null"`
	Game       *Game  `gorm:"constraint:OnDelete:CASCADE"`
	MinOS      string `gorm:"column:min_os;size:512"`
	MinCPU     string `gorm:"column:min_cpu;size:512"`
	MinRAM     string `gorm:"column:min_ram;size:512"`
	MinGPU     string `gorm:"column:min_gpu;size:512"`
	MinStorage string `gorm:"column:min_storage;size:512"`
	RecOS      string `gorm:"column:rec_os;size:512"`
	RecCPU     string `gorm:"column:rec_cpu;size:512"`
	RecRAM     string `gorm:"column:rec_ram;size:512"`
	RecGPU     string `gorm:"column:rec_gpu;size:512"`
	RecStorage string `gorm:"column:rec_storage;size:512"`
}

// GameDLC is one add-on row. At most MaxDLCs exist per game.
type GameDLC struct {
	ID            uint   `gorm:"primaryKey"`
	GameID        uint   `gorm:"index;not null"`
	Game          *Game  `gorm:"constraint:OnDelete:CASCADE"`
	Title         string `gorm:"size:512"`
	Price         float64
	OriginalPrice float64
	Description   string `gorm:"type:text"`
	Image         string `gorm:"size:1024"`
}

func (GameDLC) TableName() string { return "game_dlcs" }

type GameEdition struct {
	ID            uint   `gorm:"primaryKey"`
	GameID        uint   `gorm:"index;not null"`
	Game          *Game  `gorm:"constraint:OnDelete:CASCADE"`
	Title         string `gorm:"size:512"`
	Price         float64
	OriginalPrice float64
	Description   string `gorm:"size:64"`
	Image         string `gorm:"size:1024"`
}

type GameScreenshot struct {
	ID       uint   `gorm:"primaryKey"`
	GameID   uint   `gorm:"index;not null"`
	Game     *Game  `gorm:"constraint:OnDelete:CASCADE"`
	ImageURL string `gorm:"column:image_url;size:1024"`
}

// NormalizedGame is the storage-ready form of one payload before it is
// matched against an existing row.
type NormalizedGame struct {
	AppID         int
	Title         string
	Price         float64
	OriginalPrice float64
	Image         string
	Trailer       string
	Description   string
	Genre         string
	Section       string
	ReleaseDate   string
	Rating        *float64
	StockQuantity int
}

func (n NormalizedGame) apply(g *Game) {
	g.Title = n.Title
	g.Price = n.Price
	g.OriginalPrice = n.OriginalPrice
	g.Image = n.Image
	g.Trailer = n.Trailer
	g.Description = n.Description
	g.Genre = n.Genre
	g.Section = n.Section
	g.ReleaseDate = n.ReleaseDate
	g.Rating = n.Rating
	g.StockQuantity = n.StockQuantity
}
