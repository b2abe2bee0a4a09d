package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/adventure-engine/internal/catalog"
)

func main() {
	var (
		c    *catalog.Catalog
		name string
		err  error
	)
	switch len(os.Args) {
	case 1:
		name = "built-in catalog"
		c, err = catalog.Default()
	case 2:
		name = os.Args[1]
		if err = checkFilename(name); err == nil {
			c, err = catalog.LoadFile(name)
		}
	default:
		fmt.Fprintf(os.Stderr, "Usage: %s [worlds.yaml]\n", os.Args[0])
		os.Exit(1)
	}

	fmt.Printf("Validating %s...\n", name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	if problems := validate(c); len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed: validation errors in %s:\n%s\n", name, strings.Join(problems, "\n"))
		os.Exit(1)
	}

	fmt.Printf("Catalog is valid! %d worlds\n", len(c.Worlds()))
}

// validate runs the catalog's own checks plus naming conventions.
func validate(c *catalog.Catalog) []string {
	var problems []string
	for _, err := range c.Validate() {
		problems = append(problems, "  - "+err.Error())
	}
	for _, w := range c.Worlds() {
		if !isValidID(w.Key) {
			problems = append(problems, fmt.Sprintf("  - world key '%s' should be lowercase snake_case", w.Key))
		}
		for _, l := range w.LootPool {
			if !isValidID(l.ID) {
				problems = append(problems, fmt.Sprintf("  - loot id '%s' in world %s should be lowercase snake_case", l.ID, w.Key))
			}
		}
	}
	return problems
}

func checkFilename(file string) error {
	base := filepath.Base(file)
	ext := filepath.Ext(base)
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("catalog file must have .yaml extension: %s", base)
	}
	return nil
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
