package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yashrajoria/pharmacy-agent/models"
)

var csvColumns = []string{"name", "stock", "price", "requires_prescription"}

// ReadProductsCSV parses rows of name,stock,price,requires_prescription.
// A header row with those names is required.
func ReadProductsCSV(r io.Reader) ([]models.Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", col)
		}
	}

	var products []models.Product
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		name := strings.TrimSpace(row[index["name"]])
		if models.NormalizeText(name) == "" {
			return nil, fmt.Errorf("line %d: empty name", line)
		}
		stock, err := strconv.Atoi(strings.TrimSpace(row[index["stock"]]))
		if err != nil || stock < 0 {
			return nil, fmt.Errorf("line %d: invalid stock %q", line, row[index["stock"]])
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(row[index["price"]]), 64)
		if err != nil || price < 0 {
			return nil, fmt.Errorf("line %d: invalid price %q", line, row[index["price"]])
		}
		rx, err := strconv.ParseBool(strings.TrimSpace(row[index["requires_prescription"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid requires_prescription %q", line, row[index["requires_prescription"]])
		}

		products = append(products, models.Product{
			Name:                 name,
			Stock:                stock,
			UnitPrice:            price,
			RequiresPrescription: rx,
		})
	}
	return products, nil
}
