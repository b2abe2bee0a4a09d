package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/adventure-engine/internal/catalog"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	WorldsFile string
}

// worldChoice is one entry of the world selection modal.
type worldChoice struct {
	Key  string
	Name string
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		// A turn runs several agents in sequence
		Timeout:    5 * time.Minute,
		WorldsFile: getEnv("WORLDS_FILE", ""),
	}

	client := newAPIClient(cfg)
	if !client.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	worlds, err := listWorlds(cfg.WorldsFile)
	if err != nil || len(worlds) == 0 {
		fmt.Fprintf(os.Stderr, "Failed to list worlds: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(client, worlds),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// listWorlds reads the same catalog the API serves.
func listWorlds(worldsFile string) ([]worldChoice, error) {
	c, err := catalog.Open(worldsFile)
	if err != nil {
		return nil, err
	}
	var out []worldChoice
	for _, w := range c.Worlds() {
		out = append(out, worldChoice{Key: w.Key, Name: w.Name})
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
