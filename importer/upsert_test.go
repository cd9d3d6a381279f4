package importer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"gorm.io/gorm"
)

func decodeFixture(t *testing.T, appID int, data string) *AppDetails {
	t.Helper()
	gd, err := DecodeAppDetails([]byte(fmt.Sprintf(`{"%d":{"success":true,"data":%s}}`, appID, data)), appID)
	if err != nil {
		t.Fatal(err)
	}
	return gd
}

type childSnapshot struct {
	Spec        GameSpec
	DLCs        []string
	Editions    []string
	Screenshots []string
}

func snapshotChildren(t *testing.T, db *gorm.DB, gameID uint) childSnapshot {
	t.Helper()
	var snap childSnapshot
	if err := db.Where("game_id = ?", gameID).First(&snap.Spec).Error; err != nil {
		t.Fatal(err)
	}
	snap.Spec.ID = 0

	var dlcs []GameDLC
	db.Where("game_id = ?", gameID).Order("id").Find(&dlcs)
	for _, d := range dlcs {
		snap.DLCs = append(snap.DLCs, fmt.Sprintf("%s|%.2f|%.2f", d.Title, d.Price, d.OriginalPrice))
	}
	var editions []GameEdition
	db.Where("game_id = ?", gameID).Order("id").Find(&editions)
	for _, e := range editions {
		snap.Editions = append(snap.Editions, fmt.Sprintf("%s|%.2f|%.2f|%s", e.Title, e.Price, e.OriginalPrice, e.Description))
	}
	var shots []GameScreenshot
	db.Where("game_id = ?", gameID).Order("id").Find(&shots)
	for _, s := range shots {
		snap.Screenshots = append(snap.Screenshots, s.ImageURL)
	}
	return snap
}

func TestUpsertStoresGameAndChildren(t *testing.T) {
	store, srv := newFakeStore(t)
	seedEldenRing(store)
	runner, _ := newTestRunner(t, srv, t.TempDir())
	gd := decodeFixture(t, 1245620, eldenRingJSON)

	game, err := runner.upserter.Upsert(context.Background(), 1245620, "trending", gd)
	if err != nil {
		t.Fatal(err)
	}
	if game.ID == 0 {
		t.Fatalf("game id not assigned")
	}
	if game.Title != "ELDEN RING" {
		t.Fatalf("title = %q", game.Title)
	}
	if game.Price != 35.99 || game.OriginalPrice != 59.99 {
		t.Fatalf("price = %v / %v", game.Price, game.OriginalPrice)
	}
	if game.Price > game.OriginalPrice {
		t.Fatalf("price must not exceed original price")
	}
	if game.Image != srv.URL+"/cdn/1245620/library_600x900_2x.jpg" {
		t.Fatalf("image = %q", game.Image)
	}
	if game.Trailer != "https://video.example/max.mp4" {
		t.Fatalf("trailer = %q", game.Trailer)
	}
	if game.Description != "THE NEW FANTASY ACTION RPG." {
		t.Fatalf("description = %q", game.Description)
	}
	if game.Genre != "Action, RPG" {
		t.Fatalf("genre = %q", game.Genre)
	}
	if game.ReleaseDate != "24 Feb, 2022" {
		t.Fatalf("release date = %q", game.ReleaseDate)
	}
	if game.Rating == nil || *game.Rating != 9.4 {
		t.Fatalf("rating = %v, want 9.4", game.Rating)
	}
	if game.StockQuantity != DefaultStockQuantity {
		t.Fatalf("stock = %d", game.StockQuantity)
	}

	snap := snapshotChildren(t, runner.DB(), game.ID)
	wantSpec := GameSpec{
		GameID:     game.ID,
		MinOS:      "Windows 10",
		MinCPU:     "INTEL CORE I5-8400",
		MinRAM:     "12 GB RAM",
		MinGPU:     "NVIDIA GEFORCE GTX 1060 3 GB",
		MinStorage: "60 GB available space",
		RecOS:      "Windows 11",
		RecCPU:     "INTEL CORE I7-8700K",
		RecRAM:     "16 GB RAM",
		RecGPU:     NotAvailable,
		RecStorage: NotAvailable,
	}
	if !reflect.DeepEqual(snap.Spec, wantSpec) {
		t.Fatalf("spec = %+v\nwant %+v", snap.Spec, wantSpec)
	}

	wantDLCs := []string{
		"Shadow of the Erdtree|29.99|39.99",
		"Shadow of the Erdtree|29.99|39.99",
	}
	if !reflect.DeepEqual(snap.DLCs, wantDLCs) {
		t.Fatalf("dlcs = %v", snap.DLCs)
	}

	wantEditions := []string{
		"ELDEN RING|59.99|59.99|Edition",
		"ELDEN RING Deluxe Edition|63.99|79.99|Edition",
		"ELDEN RING Nightreign Bundle|99.99|99.99|Edition",
		"Edition|9.99|9.99|Edition",
	}
	if !reflect.DeepEqual(snap.Editions, wantEditions) {
		t.Fatalf("editions = %v", snap.Editions)
	}

	if len(snap.Screenshots) != MaxScreenshots {
		t.Fatalf("screenshots = %d, want %d", len(snap.Screenshots), MaxScreenshots)
	}
	if snap.Screenshots[0] != "https://img.example/0.jpg" || snap.Screenshots[4] != "https://img.example/4.jpg" {
		t.Fatalf("screenshots not in payload order: %v", snap.Screenshots)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, srv := newFakeStore(t)
	seedEldenRing(store)
	runner, _ := newTestRunner(t, srv, t.TempDir())
	gd := decodeFixture(t, 1245620, eldenRingJSON)
	ctx := context.Background()

	first, err := runner.upserter.Upsert(ctx, 1245620, "trending", gd)
	if err != nil {
		t.Fatal(err)
	}
	before := snapshotChildren(t, runner.DB(), first.ID)

	second, err := runner.upserter.Upsert(ctx, 1245620, "trending", gd)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("re-import created a new row: %d vs %d", second.ID, first.ID)
	}
	after := snapshotChildren(t, runner.DB(), second.ID)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("children changed across re-import:\n%+v\n%+v", before, after)
	}

	db := runner.DB()
	counts := map[string]int64{
		"games":       countRows(t, db, &Game{}),
		"specs":       countRows(t, db, &GameSpec{}),
		"dlcs":        countRows(t, db, &GameDLC{}),
		"editions":    countRows(t, db, &GameEdition{}),
		"screenshots": countRows(t, db, &GameScreenshot{}),
	}
	want := map[string]int64{"games": 1, "specs": 1, "dlcs": 2, "editions": 4, "screenshots": 5}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("row counts = %v, want %v", counts, want)
	}
}

func TestUpsertMatchesByTitle(t *testing.T) {
	_, srv := newFakeStore(t)
	runner, _ := newTestRunner(t, srv, t.TempDir())
	ctx := context.Background()

	old := decodeFixture(t, 3240220, `{"name": "Grand Theft Auto V", "price_overview": {"initial": 2999, "final": 2999}, "screenshots": [{"path_full": "a.jpg"}, {"path_full": "b.jpg"}]}`)
	first, err := runner.upserter.Upsert(ctx, 3240220, "trending", old)
	if err != nil {
		t.Fatal(err)
	}

	// Same title under another app id updates the existing row and replaces its children.
	renamed := decodeFixture(t, 271591, `{"name": "Grand Theft Auto V", "is_free": true, "screenshots": [{"path_full": "c.jpg"}]}`)
	second, err := runner.upserter.Upsert(ctx, 271591, "action", renamed)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected update of row %d, got %d", first.ID, second.ID)
	}
	if second.Price != 0 || second.OriginalPrice != 0 || second.Section != "action" {
		t.Fatalf("row not updated: %+v", second)
	}

	var shots []GameScreenshot
	runner.DB().Where("game_id = ?", first.ID).Find(&shots)
	if len(shots) != 1 || shots[0].ImageURL != "c.jpg" {
		t.Fatalf("screenshots not replaced: %+v", shots)
	}
	if n := countRows(t, runner.DB(), &Game{}); n != 1 {
		t.Fatalf("games = %d, want 1", n)
	}
}

func TestUpsertWithoutGeneratedKey(t *testing.T) {
	_, srv := newFakeStore(t)
	runner, _ := newTestRunner(t, srv, t.TempDir())
	db := runner.DB()

	err := db.Callback().Create().After("gorm:create").Register("test:drop_key", func(tx *gorm.DB) {
		if g, ok := tx.Statement.Dest.(*Game); ok {
			g.ID = 0
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	gd := decodeFixture(t, 42, `{"name": "Keyless", "screenshots": [{"path_full": "x.jpg"}]}`)
	_, err = runner.upserter.Upsert(context.Background(), 42, "trending", gd)
	if !errors.Is(err, ErrNoGeneratedKey) {
		t.Fatalf("err = %v, want ErrNoGeneratedKey", err)
	}
	var pe *PersistError
	if !errors.As(err, &pe) || pe.AppID != 42 {
		t.Fatalf("expected PersistError for app 42, got %v", err)
	}
	if n := countRows(t, db, &GameScreenshot{}); n != 0 {
		t.Fatalf("children must not be written, got %d screenshots", n)
	}
	if n := countRows(t, db, &Game{}); n != 0 {
		t.Fatalf("transaction should roll back, got %d games", n)
	}
}

func TestEditionOriginalPrice(t *testing.T) {
	cases := []struct {
		price, pct, want float64
	}{
		{19.99, 20, 24.99},
		{63.99, 20, 79.99},
		{10, 0, 10},
		{10, 100, 10},
		{10, 150, 10},
		{10, -5, 10},
		{9.999, 0, 10},
	}
	for _, c := range cases {
		if got := EditionOriginalPrice(c.price, c.pct); got != c.want {
			t.Errorf("EditionOriginalPrice(%v, %v) = %v, want %v", c.price, c.pct, got, c.want)
		}
	}
}

func TestEditionTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ELDEN RING - $59.99", "ELDEN RING"},
		{"Deluxe <b>Edition</b> - $79.99", "Deluxe Edition"},
		{"Bundle - $10.00 - $5.00", "Bundle"},
		{"Soundtrack", "Soundtrack"},
		{"", "Edition"},
		{"Game &amp; Friends - $1.99", "Game & Friends"},
		{"Price in title - $", "Price in title"},
	}
	for _, c := range cases {
		if got := editionTitle(c.in); got != c.want {
			t.Errorf("editionTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBuildEditionsCapsEachGroup(t *testing.T) {
	groups := []PackageGroup{
		{Subs: []PackageSub{{OptionText: "a"}, {OptionText: "b"}, {OptionText: "c"}, {OptionText: "d"}}},
		{Subs: []PackageSub{{OptionText: "e"}, {OptionText: "f"}, {OptionText: "g"}, {OptionText: "h"}, {OptionText: "i"}}},
		{},
	}
	eds := BuildEditions(groups, "img.jpg")
	var titles []string
	for _, e := range eds {
		titles = append(titles, e.Title)
		if e.Image != "img.jpg" || e.Description != "Edition" {
			t.Fatalf("edition %+v", e)
		}
	}
	if want := []string{"a", "b", "c", "e", "f", "g"}; !reflect.DeepEqual(titles, want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
}

func TestBuildScreenshots(t *testing.T) {
	in := []Screenshot{{PathFull: "1"}, {PathFull: ""}, {PathFull: "3"}, {PathFull: "4"}, {PathFull: "5"}, {PathFull: "6"}}
	out := BuildScreenshots(in)
	var urls []string
	for _, s := range out {
		urls = append(urls, s.ImageURL)
	}
	if want := []string{"1", "3", "4", "5"}; !reflect.DeepEqual(urls, want) {
		t.Fatalf("screenshots = %v, want %v", urls, want)
	}
	if got := BuildScreenshots(nil); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}
