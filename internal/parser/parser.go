// Package parser reads sensor-reading files for bulk ingestion.
package parser

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"equipment-health-monitor/internal/models"
)

// Parser handles parsing of sensor data files
type Parser struct {
	format string
}

// NewParser creates a new parser with the specified format
func NewParser(format string) *Parser {
	return &Parser{format: format}
}

// ParseFile parses a sensor data file
func (p *Parser) ParseFile(filename string) ([]models.SensorReading, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse parses sensor data from a reader according to the configured format.
func (p *Parser) Parse(r io.Reader) ([]models.SensorReading, error) {
	switch strings.ToLower(p.format) {
	case "csv":
		return p.parseCSV(r)
	case "json":
		return p.parseJSON(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s", p.format)
	}
}

// parseCSV parses CSV formatted sensor data. The header row names the
// columns; unknown columns are ignored.
func (p *Parser) parseCSV(r io.Reader) ([]models.SensorReading, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map header indices
	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var results []models.SensorReading
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return results, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		lineNum++

		reading, err := p.recordToReading(record, indices)
		if err != nil {
			// Log error but continue parsing
			fmt.Printf("Warning: line %d: %v\n", lineNum, err)
			continue
		}
		results = append(results, reading)
	}

	return results, nil
}

// recordToReading converts a CSV record to a SensorReading
func (p *Parser) recordToReading(record []string, indices map[string]int) (models.SensorReading, error) {
	var r models.SensorReading

	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	r.EquipmentID = getValue("equipment_id")

	// Parse timestamp
	tsStr := getValue("timestamp")
	if tsStr != "" {
		ts, err := parseTimestamp(tsStr)
		if err != nil {
			return r, fmt.Errorf("invalid timestamp: %w", err)
		}
		r.Timestamp = ts
	}

	// Parse metric fields; a missing column parses to 0, a malformed value
	// is an error so the row gets skipped rather than stored as garbage.
	var err error
	for _, f := range models.FeatureNames {
		raw := getValue(f)
		var v float64
		if raw != "" {
			v, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return r, fmt.Errorf("invalid %s: %q", f, raw)
			}
		}
		switch f {
		case "temperature":
			r.Temperature = v
		case "vibration":
			r.Vibration = v
		case "pressure":
			r.Pressure = v
		case "current":
			r.Current = v
		}
	}

	if v := getValue("failure"); v != "" {
		r.Failure = v == "1" || strings.EqualFold(v, "true")
	}

	return r, nil
}

// parseJSON parses JSON formatted sensor data
func (p *Parser) parseJSON(r io.Reader) ([]models.SensorReading, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Try to decode as array first
	var results []models.SensorReading
	if err := json.Unmarshal(data, &results); err == nil {
		return results, nil
	}

	// Fall back to newline-delimited JSON
	return p.parseJSONLines(strings.NewReader(string(data)))
}

// parseJSONLines parses newline-delimited JSON
func (p *Parser) parseJSONLines(r io.Reader) ([]models.SensorReading, error) {
	var results []models.SensorReading
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}

		// Remove trailing comma if present
		line = strings.TrimSuffix(line, ",")

		var reading models.SensorReading
		if err := json.Unmarshal([]byte(line), &reading); err != nil {
			fmt.Printf("Warning: line %d: %v\n", lineNum, err)
			continue
		}
		results = append(results, reading)
	}

	return results, scanner.Err()
}

// parseTimestamp tries multiple timestamp formats
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	// Try Unix timestamp
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(ts, 0), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", s)
}
