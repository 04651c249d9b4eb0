package data

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/datar-psa/genaivalidator/api"
)

// LoadFile reads development records from a local .json, .jsonl, .yaml or .yml file.
func LoadFile(path string) ([]api.Record, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		records, err := ParseJSON(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return records, nil
	case ".jsonl":
		return parseJSONLines(path, body)
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if doc == nil {
			return nil, nil
		}
		records, err := toRecords(doc)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("unsupported data file extension %q (want .json, .jsonl, .yaml or .yml)", ext)
	}
}

func parseJSONLines(path string, body []byte) ([]api.Record, error) {
	var records []api.Record
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		recs, err := ParseJSON(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		records = append(records, recs...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
