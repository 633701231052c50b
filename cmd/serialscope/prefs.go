package main

import (
	"log"
	"slices"
	"sync"

	"github.com/tinytelemetry/serialscope/internal/settings"
)

// prefs keeps the persisted settings current and writes them back whenever
// the port or the name set changes. The TUI and the API call it from
// different goroutines.
type prefs struct {
	path string

	mu  sync.Mutex
	cur settings.Settings
}

func loadPrefs(path string) *prefs {
	s, err := settings.Load(path)
	if err != nil {
		log.Printf("settings: %v (starting with defaults)", err)
	}
	return &prefs{path: path, cur: s}
}

func (p *prefs) snapshot() settings.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.cur
	s.Names = slices.Clone(p.cur.Names)
	return s
}

func (p *prefs) setNames(names []string) {
	p.mu.Lock()
	p.cur.Names = slices.Clone(names)
	p.mu.Unlock()
	p.save()
}

func (p *prefs) setPort(port string) {
	if port == stdinName {
		return
	}
	p.mu.Lock()
	p.cur.Port = port
	p.mu.Unlock()
	p.save()
}

func (p *prefs) setBaud(baud int) {
	p.mu.Lock()
	p.cur.Baud = baud
	p.mu.Unlock()
}

func (p *prefs) save() {
	if p.path == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := settings.Save(p.path, p.cur); err != nil {
		log.Printf("settings: save failed: %v", err)
	}
}
