package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeStore serves /api/appdetails and HEAD probes under /cdn/.
type fakeStore struct {
	mu           sync.Mutex
	apps         map[int]string
	status       map[int]int
	unsuccessful map[int]bool
	images       map[string]bool
	requests     []*http.Request
}

func newFakeStore(t *testing.T) (*fakeStore, *httptest.Server) {
	t.Helper()
	fs := &fakeStore{
		apps:         map[int]string{},
		status:       map[int]int{},
		unsuccessful: map[int]bool{},
		images:       map[string]bool{},
	}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (f *fakeStore) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/cdn/") {
		f.mu.Lock()
		ok := f.images[r.URL.Path]
		f.mu.Unlock()
		if ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.URL.Path != "/api/appdetails" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.Atoi(r.URL.Query().Get("appids"))
	if err != nil {
		http.Error(w, "bad appids", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	status, forced := f.status[id]
	data, known := f.apps[id]
	failed := f.unsuccessful[id]
	f.mu.Unlock()

	if forced {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if failed || !known {
		fmt.Fprintf(w, `{"%d":{"success":false}}`, id)
		return
	}
	fmt.Fprintf(w, `{"%d":{"success":true,"data":%s}}`, id, data)
}

// appRequests returns the app ids requested from /api/appdetails, in order.
func (f *fakeStore) appRequests() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, r := range f.requests {
		if r.URL.Path != "/api/appdetails" {
			continue
		}
		id, _ := strconv.Atoi(r.URL.Query().Get("appids"))
		out = append(out, id)
	}
	return out
}

func (f *fakeStore) lastAppRequest(appID int) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		r := f.requests[i]
		if r.URL.Path == "/api/appdetails" && r.URL.Query().Get("appids") == strconv.Itoa(appID) {
			return r
		}
	}
	return nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

func (s *sleepRecorder) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.pauses))
	copy(out, s.pauses)
	return out
}

func newTestRunner(t *testing.T, srv *httptest.Server, dir string) (*Runner, *sleepRecorder) {
	t.Helper()
	runner, err := NewRunner(RunnerConfig{
		DB:           DBConfig{Driver: DriverSQLite, DSN: filepath.Join(dir, "catalog.db"), Migrate: true},
		LedgerPath:   filepath.Join(dir, "import_progress.txt"),
		StoreBaseURL: srv.URL,
		CDNBase:      srv.URL + "/cdn",
		Headers:      StaticHeaders{"User-Agent": []string{"catalog-import-test"}},
		Logger:       zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = runner.Close() })
	rec := &sleepRecorder{}
	runner.sleep = rec.sleep
	return runner, rec
}

const eldenRingJSON = `{
	"name": "ELDEN RING",
	"is_free": false,
	"short_description": "THE NEW <b>FANTASY</b> ACTION RPG.",
	"header_image": "https://cdn.example/1245620/header.jpg",
	"movies": [
		{"mp4": {"480": "https://video.example/480.mp4", "max": "https://video.example/max.mp4"}, "dash_h264": "https://video.example/dash.mpd"},
		{"mp4": {"max": "https://video.example/second.mp4"}}
	],
	"price_overview": {"currency": "USD", "initial": 5999, "final": 3599},
	"genres": [{"id": "1", "description": "Action"}, {"id": "3", "description": "RPG"}],
	"release_date": {"coming_soon": false, "date": "24 Feb, 2022"},
	"metacritic": {"score": 94},
	"recommendations": {"total": 700000},
	"pc_requirements": {
		"minimum": "<strong>Minimum:</strong><br><ul class=\"bb_ul\"><li><strong>OS:</strong> Windows 10<br></li><li><strong>Processor:</strong> INTEL CORE I5-8400<br></li><li><strong>Memory:</strong> 12 GB RAM<br></li><li><strong>Graphics:</strong> NVIDIA GEFORCE GTX 1060 3 GB<br></li><li><strong>Storage:</strong> 60 GB available space</li></ul>",
		"recommended": "<strong>Recommended:</strong><br><ul class=\"bb_ul\"><li><strong>OS:</strong> Windows 11<br></li><li><strong>Processor:</strong> INTEL CORE I7-8700K<br></li><li><strong>Memory:</strong> 16 GB RAM<br></li></ul>"
	},
	"dlc": [10, 11, 12, 13],
	"package_groups": [
		{"name": "default", "subs": [
			{"packageid": 1, "option_text": "ELDEN RING - $59.99", "percent_savings": 0, "price_in_cents_with_discount": 5999},
			{"packageid": 2, "option_text": "ELDEN RING Deluxe Edition - $63.99", "percent_savings": 20, "price_in_cents_with_discount": 6399},
			{"packageid": 3, "option_text": "ELDEN RING Nightreign Bundle - $99.99", "percent_savings": 0, "price_in_cents_with_discount": 9999},
			{"packageid": 4, "option_text": "ELDEN RING Collector - $149.99", "percent_savings": 0, "price_in_cents_with_discount": 14999}
		]},
		{"name": "subscriptions", "subs": [
			{"packageid": 5, "option_text": "", "percent_savings": 0, "price_in_cents_with_discount": 999}
		]}
	],
	"screenshots": [
		{"id": 0, "path_full": "https://img.example/0.jpg"},
		{"id": 1, "path_full": "https://img.example/1.jpg"},
		{"id": 2, "path_full": "https://img.example/2.jpg"},
		{"id": 3, "path_full": "https://img.example/3.jpg"},
		{"id": 4, "path_full": "https://img.example/4.jpg"},
		{"id": 5, "path_full": "https://img.example/5.jpg"},
		{"id": 6, "path_full": "https://img.example/6.jpg"}
	]
}`

const dlcJSON = `{
	"name": "Shadow of the <i>Erdtree</i>",
	"short_description": "Expansion.",
	"header_image": "https://cdn.example/dlc/header.jpg",
	"price_overview": {"currency": "USD", "initial": 3999, "final": 2999}
}`

// gtaJSON has no price block; its price comes from the manual override table.
const gtaJSON = `{
	"name": "Grand Theft Auto V Legacy",
	"short_description": "",
	"genres": [{"id": "1", "description": "Action"}],
	"release_date": {"coming_soon": false, "date": "13 Apr, 2015"},
	"recommendations": {"total": 1500000},
	"pc_requirements": []
}`

// seedEldenRing registers the Elden Ring payload, its add-ons and a
// portrait image on f.
func seedEldenRing(f *fakeStore) {
	f.apps[1245620] = eldenRingJSON
	f.apps[10] = dlcJSON
	f.status[11] = http.StatusInternalServerError
	f.apps[12] = dlcJSON
	f.apps[13] = dlcJSON
	f.images["/cdn/1245620/library_600x900_2x.jpg"] = true
}
