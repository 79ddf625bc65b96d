package db

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type promptRecord struct {
	Theme string
	Text  string
}

// LoadPromptLibrary reads theme,prompt rows from a CSV and upserts them into the prompt_library table.
func LoadPromptLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, nil
	}
	records, err := readPrompts(path)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := PromptLibrary{
			Theme: record.Theme,
			Text:  record.Text,
		}
		if err := conn.FirstOrCreate(&entry, PromptLibrary{Theme: entry.Theme, Text: entry.Text}).Error; err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// RandomPrompt picks one library entry; ok is false when the library is empty.
func RandomPrompt(ctx context.Context, conn *gorm.DB) (PromptLibrary, bool, error) {
	var entry PromptLibrary
	if conn == nil {
		return entry, false, nil
	}
	err := conn.WithContext(ctx).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "RANDOM()"}}).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}
	return entry, true, nil
}

func readPrompts(path string) ([]promptRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []promptRecord
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		theme := strings.TrimSpace(row[0])
		text := strings.TrimSpace(row[1])
		if theme == "" || text == "" {
			continue
		}
		records = append(records, promptRecord{Theme: theme, Text: text})
	}
	return records, nil
}
