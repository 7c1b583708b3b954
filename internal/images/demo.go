// internal/images/demo.go
//
// Demo card images used to pad a wallet's image pool.
//
// Initialization behavior (Init):
//   1. If a path is given (DEMO_CARDS_FILE), load card names from that file.
//   2. Otherwise fall back to the embedded assets/demo-cards.txt list.
//
// Card i (1-based) is served from /demo-cards/card-<i>.svg.
// Initialization runs once (sync.Once); later calls return the first result.

package images

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/memorymatch/assets"
	"github.com/robalobadob/memorymatch/internal/game"
)

var (
	initOnce   sync.Once
	demoNames  []string
	initialErr error
)

// Init loads the demo card list. Safe to call multiple times.
func Init(path string) error {
	initOnce.Do(func() {
		if path != "" {
			demoNames, initialErr = loadFile(path)
		} else {
			demoNames, initialErr = assets.DemoCardNames()
		}
		if initialErr == nil && len(demoNames) == 0 {
			initialErr = errors.New("demo card list is empty")
		}
	})
	return initialErr
}

func loadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func ensureInit() {
	_ = Init("")
}

// DemoCount returns how many demo images exist.
func DemoCount() int {
	ensureInit()
	return len(demoNames)
}

// Demo returns up to count demo images, in list order.
func Demo(count int) []game.Image {
	ensureInit()
	n := min(count, len(demoNames))
	out := make([]game.Image, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		out = append(out, game.Image{
			ID:          fmt.Sprintf("demo-%d", i),
			URL:         fmt.Sprintf("/demo-cards/card-%d.svg", i),
			DisplayName: demoNames[i-1],
			Kind:        game.KindRegular,
			Origin:      "demo",
		})
	}
	return out
}
