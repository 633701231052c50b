// Package patterns clusters lines the parser did not recognize into
// templates, so device chatter can be scanned for names worth tracking.
package patterns

import (
	"cmp"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/jaeyo/go-drain3/pkg/drain3"
)

const (
	DefaultMaxClusters = 500
	DefaultSimilarity  = 0.4
)

// Config tunes the template miner.
type Config struct {
	MaxClusters int
	Similarity  float64
}

// Pattern is one template with the number of lines it absorbed.
type Pattern struct {
	Template   string  `json:"template"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Miner feeds unrecognized lines to a drain3 tree. It implements
// model.LineSink and is safe for concurrent use.
type Miner struct {
	mu    sync.Mutex
	drain *drain3.Drain
	total int
}

// NewMiner creates an empty miner.
func NewMiner(conf ...Config) *Miner {
	cfg := Config{MaxClusters: DefaultMaxClusters, Similarity: DefaultSimilarity}
	if len(conf) > 0 {
		if conf[0].MaxClusters > 0 {
			cfg.MaxClusters = conf[0].MaxClusters
		}
		if conf[0].Similarity > 0 {
			cfg.Similarity = conf[0].Similarity
		}
	}

	d, err := drain3.NewDrain(
		drain3.WithMaxCluster(cfg.MaxClusters),
		drain3.WithSimTh(cfg.Similarity),
		// device lines are name,value pairs
		drain3.WithExtraDelimiter([]string{",", "=", ":", "\t"}),
	)
	if err != nil {
		log.Printf("patterns: disabled: %v", err)
	}
	return &Miner{drain: d}
}

// AppendLine adds one line. Blank lines are ignored.
func (m *Miner) AppendLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || m.drain == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, _, err := m.drain.AddLogMessage(line); err != nil {
		log.Printf("patterns: add line: %v", err)
		return
	}
	m.total++
}

// Stats returns the number of templates and the number of lines mined.
func (m *Miner) Stats() (patterns, lines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drain == nil {
		return 0, 0
	}
	return len(m.drain.GetClusters()), m.total
}

// Top returns up to n templates, most frequent first.
func (m *Miner) Top(n int) []Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drain == nil || n <= 0 || m.total == 0 {
		return nil
	}

	clusters := m.drain.GetClusters()
	out := make([]Pattern, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, Pattern{
			Template:   c.GetTemplate(),
			Count:      int(c.Size),
			Percentage: float64(c.Size) * 100 / float64(m.total),
		})
	}
	slices.SortFunc(out, func(a, b Pattern) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Template, b.Template)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
