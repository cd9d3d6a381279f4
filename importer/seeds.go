package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strconv"
)

// Seed is one work-list entry: an app id and the storefront section it
// should be filed under.
type Seed struct {
	AppID   int    `yaml:"id"`
	Section string `yaml:"section"`
}

// DefaultSeeds is the built-in trending list, in import order.
func DefaultSeeds() []Seed {
	ids := []int{
		1593500, // God of War
		1245620, // Elden Ring
		1091500, // Cyberpunk 2077
		2050650, // Resident Evil 4
		271590,  // Grand Theft Auto V
		601150,  // Devil May Cry 5
		2215430, // Ghost of Tsushima
		1808500, // ARC Raiders
		289070,  // Civilization VI
		367520,  // Hollow Knight
		1174180, // Red Dead Redemption 2
		2668510, // Red Dead Redemption
		883710,  // Resident Evil 2
		952060,  // Resident Evil 3
		418370,  // Resident Evil 7
		1196590, // Resident Evil Village
		1030300, // Hollow Knight: Silksong
		1238840, // Battlefield 1
		1238820, // Battlefield 3
		1238860, // Battlefield 4
		1238810, // Battlefield V
		1517290, // Battlefield 2042
		1238880, // Battlefield Hardline
		1222140, // Detroit: Become Human
		1903340, // Clair Obscur: Expedition 33
		2592160, // Dispatch
		2807960, // Battlefield 6
		1145360, // Hades
		1145350, // Hades II
		3240220, // Grand Theft Auto V Enhanced
	}
	out := make([]Seed, 0, len(ids))
	for _, id := range ids {
		out = append(out, Seed{AppID: id, Section: DefaultSection})
	}
	return out
}

// seedLinePattern matches lines like "Elden Ring.........1245620".
var seedLinePattern = regexp.MustCompile(`\.{2,}\s*(\d+)`)

// ParseSeedList reads one candidate per line. Lines without a dotted leader
// followed by digits are ignored.
func ParseSeedList(r io.Reader) ([]Seed, error) {
	var out []Seed
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := seedLinePattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, Seed{AppID: id, Section: DefaultSection})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadSeedFile parses path. A missing file yields no seeds and ok=false.
func LoadSeedFile(path string) (seeds []Seed, ok bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	seeds, err = ParseSeedList(f)
	if err != nil {
		return nil, true, fmt.Errorf("read seed file: %w", err)
	}
	return seeds, true, nil
}

// MergeSeeds concatenates lists keeping first-seen order. A later entry for
// an id already present replaces its section in place.
func MergeSeeds(lists ...[]Seed) []Seed {
	index := make(map[int]int)
	var out []Seed
	for _, list := range lists {
		for _, s := range list {
			if s.Section == "" {
				s.Section = DefaultSection
			}
			if i, ok := index[s.AppID]; ok {
				out[i].Section = s.Section
				continue
			}
			index[s.AppID] = len(out)
			out = append(out, s)
		}
	}
	return out
}

// Pending drops seeds already recorded in the ledger.
func Pending(seeds []Seed, l *Ledger) []Seed {
	out := make([]Seed, 0, len(seeds))
	for _, s := range seeds {
		if l != nil && l.Contains(s.AppID) {
			continue
		}
		out = append(out, s)
	}
	return out
}
