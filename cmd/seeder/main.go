// Command seeder installs the default offensive dictionary from CSV files.
// It is idempotent: reseeding an existing database never duplicates rows or
// disturbs user customizations.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jwillikers/content-rating/internal/bootstrap"
	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
)

func main() {
	categoriesPath := flag.String("categories", "data/categories.csv", "category CSV: name,weight")
	wordsPath := flag.String("words", "data/words.csv", "word CSV: word,category,strength,weight")
	flag.Parse()

	if err := run(*categoriesPath, *wordsPath); err != nil {
		fmt.Fprintln(os.Stderr, "seeder:", err)
		os.Exit(1)
	}
}

func run(categoriesPath, wordsPath string) error {
	ctx := context.Background()

	app, err := bootstrap.New(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	categories, err := loadCategories(categoriesPath)
	if err != nil {
		return err
	}
	words, err := loadWords(wordsPath)
	if err != nil {
		return err
	}

	if err := app.Dictionary.SeedDefaults(ctx, categories, words); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	app.Logger.Info("dictionary seeded",
		logging.Int("categories", len(categories)),
		logging.Int("words", len(words)),
	)
	return nil
}

func loadCategories(path string) ([]dictionary.SeedCategory, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return nil, err
	}

	categories := make([]dictionary.SeedCategory, 0, len(rows))
	for _, row := range rows {
		weight, err := parseWeight(row[1])
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", row[0], err)
		}
		categories = append(categories, dictionary.SeedCategory{Name: row[0], Weight: weight})
	}
	return categories, nil
}

func loadWords(path string) ([]dictionary.SeedWord, error) {
	rows, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}

	// Rows for the same word accumulate into one entry with many features.
	byName := make(map[string]int)
	words := make([]dictionary.SeedWord, 0, len(rows))
	for _, row := range rows {
		weight, err := parseWeight(row[3])
		if err != nil {
			return nil, fmt.Errorf("word %q: %w", row[0], err)
		}
		strength := domain.Strength(row[2])
		if !strength.Valid() {
			return nil, fmt.Errorf("word %q: %w", row[0], domain.ErrInvalidStrength)
		}

		feature := dictionary.SeedFeature{Category: row[1], Strength: strength, Weight: weight}
		if i, ok := byName[row[0]]; ok {
			words[i].Features = append(words[i].Features, feature)
			continue
		}
		byName[row[0]] = len(words)
		words = append(words, dictionary.SeedWord{Name: row[0], Features: []dictionary.SeedFeature{feature}})
	}
	return words, nil
}

// readCSV reads all data rows, skipping the header and blank lines.
func readCSV(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true

	var rows [][]string
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseWeight(s string) (domain.Weight, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse weight %q: %w", s, err)
	}
	weight := domain.Weight(n)
	if !weight.Valid() {
		return 0, domain.ErrInvalidWeight
	}
	return weight, nil
}
