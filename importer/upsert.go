package importer

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxEditionsPerGroup = 3
	MaxScreenshots      = 5

	editionDescription = "Edition"
	editionPriceCut    = " - $"
)

// Upserter writes one payload as a game row plus its child collections.
type Upserter struct {
	DB       *gorm.DB
	Deriver  *Deriver
	Enricher *DLCEnricher
	Parser   RequirementsParser
	Logger   *zap.Logger
}

// Upsert matches the game by exact title, updates or inserts it and replaces
// specs, DLCs, editions and screenshots inside one transaction. Network work
// (image probe, DLC lookups) happens before the transaction opens.
func (u *Upserter) Upsert(ctx context.Context, appID int, section string, gd *AppDetails) (*Game, error) {
	ng := u.Deriver.Derive(ctx, appID, section, gd)
	log := u.logger().With(zap.Int("app_id", appID), zap.String("title", ng.Title))
	log.Info("processing")

	spec := u.buildSpec(gd.PCRequirements)
	var dlcs []GameDLC
	if u.Enricher != nil {
		dlcs = u.Enricher.Enrich(ctx, gd.DLC)
	}
	editions := BuildEditions(gd.PackageGroups, orDefault(gd.HeaderImage, ng.Image))
	shots := BuildScreenshots(gd.Screenshots)

	var game Game
	err := u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("title = ?", ng.Title).First(&game).Error
		switch {
		case err == nil:
			ng.apply(&game)
			if err := tx.Save(&game).Error; err != nil {
				return newPersistError(appID, "update game", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			game = Game{}
			ng.apply(&game)
			if err := tx.Create(&game).Error; err != nil {
				return newPersistError(appID, "insert game", err)
			}
			if game.ID == 0 {
				return newPersistError(appID, "insert game", ErrNoGeneratedKey)
			}
		default:
			return newPersistError(appID, "lookup game", err)
		}
		if err := replaceChildren(tx, game.ID, spec, dlcs, editions, shots); err != nil {
			return newPersistError(appID, "replace children", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoGeneratedKey) {
			log.Warn("failed to insert game")
		}
		return nil, err
	}
	log.Debug("stored",
		zap.Uint("game_id", game.ID),
		zap.Int("dlcs", len(dlcs)),
		zap.Int("editions", len(editions)),
		zap.Int("screenshots", len(shots)),
	)
	return &game, nil
}

func replaceChildren(tx *gorm.DB, gameID uint, spec *GameSpec, dlcs []GameDLC, editions []GameEdition, shots []GameScreenshot) error {
	for _, model := range []any{&GameSpec{}, &GameDLC{}, &GameEdition{}, &GameScreenshot{}} {
		if err := tx.Where("game_id = ?", gameID).Delete(model).Error; err != nil {
			return err
		}
	}
	if spec != nil {
		spec.GameID = gameID
		if err := tx.Create(spec).Error; err != nil {
			return err
		}
	}
	if len(dlcs) > 0 {
		for i := range dlcs {
			dlcs[i].GameID = gameID
		}
		if err := tx.Create(&dlcs).Error; err != nil {
			return err
		}
	}
	if len(editions) > 0 {
		for i := range editions {
			editions[i].GameID = gameID
		}
		if err := tx.Create(&editions).Error; err != nil {
			return err
		}
	}
	if len(shots) > 0 {
		for i := range shots {
			shots[i].GameID = gameID
		}
		if err := tx.Create(&shots).Error; err != nil {
			return err
		}
	}
	return nil
}

func (u *Upserter) buildSpec(blocks RequirementsBlocks) *GameSpec {
	if !blocks.Present() {
		return nil
	}
	parser := u.Parser
	if parser == nil {
		parser = HeuristicParser{}
	}
	minimum := parser.ParseRequirements(blocks.Minimum)
	recommended := parser.ParseRequirements(blocks.Recommended)
	return &GameSpec{
		MinOS:      minimum.OS,
		MinCPU:     minimum.CPU,
		MinRAM:     minimum.RAM,
		MinGPU:     minimum.GPU,
		MinStorage: minimum.Storage,
		RecOS:      recommended.OS,
		RecCPU:     recommended.CPU,
		RecRAM:     recommended.RAM,
		RecGPU:     recommended.GPU,
		RecStorage: recommended.Storage,
	}
}

// BuildEditions keeps the first MaxEditionsPerGroup subs of every package group.
func BuildEditions(groups []PackageGroup, image string) []GameEdition {
	var out []GameEdition
	for _, g := range groups {
		subs := g.Subs
		if len(subs) > MaxEditionsPerGroup {
			subs = subs[:MaxEditionsPerGroup]
		}
		for _, sub := range subs {
			price := float64(sub.PriceInCentsWithDiscount) / 100
			out = append(out, GameEdition{
				Title:         editionTitle(sub.OptionText),
				Price:         price,
				OriginalPrice: EditionOriginalPrice(price, sub.PercentSavings),
				Description:   editionDescription,
				Image:         image,
			})
		}
	}
	return out
}

// editionTitle drops the trailing " - $xx.xx" price text of an option label.
func editionTitle(optionText string) string {
	title := Strip(orDefault(optionText, editionDescription))
	if i := strings.Index(title, editionPriceCut); i >= 0 {
		title = title[:i]
	}
	return title
}

// EditionOriginalPrice reverses a percentage discount, rounded to cents.
func EditionOriginalPrice(price, percentSavings float64) float64 {
	if percentSavings > 0 && percentSavings < 100 {
		return round(price/(1-percentSavings/100), 2)
	}
	return round(price, 2)
}

func BuildScreenshots(shots []Screenshot) []GameScreenshot {
	if len(shots) > MaxScreenshots {
		shots = shots[:MaxScreenshots]
	}
	out := make([]GameScreenshot, 0, len(shots))
	for _, s := range shots {
		if s.PathFull == "" {
			continue
		}
		out = append(out, GameScreenshot{ImageURL: s.PathFull})
	}
	return out
}

func (u *Upserter) logger() *zap.Logger {
	if u.Logger == nil {
		return zap.NewNop()
	}
	return u.Logger
}
