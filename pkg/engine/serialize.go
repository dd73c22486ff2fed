package engine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// rewardsHeader is the stable column order of a rewards CSV.
var rewardsHeader = []string{"project_id", "project_name", "display_name", "score", "amount", "currency"}

// SaveRewardsCSV writes the allocation result as a rewards CSV in the
// period's outputs directory layout.
func SaveRewardsCSV(path string, result *AllocationResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating rewards file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rewardsHeader); err != nil {
		return fmt.Errorf("writing rewards header: %w", err)
	}
	for _, r := range result.Rewards {
		record := []string{
			r.ProjectID,
			r.ProjectName,
			r.DisplayName,
			strconv.FormatFloat(r.Score, 'g', -1, 64),
			strconv.FormatFloat(r.Amount, 'f', 2, 64),
			r.Currency,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing reward for %s: %w", r.ProjectID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing rewards: %w", err)
	}
	return nil
}

// SaveResultJSON writes the full allocation result, including run metadata,
// as indented JSON for the archive and API.
func SaveResultJSON(path string, result *AllocationResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// LoadResultJSON reads a previously saved allocation result.
func LoadResultJSON(path string) (*AllocationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var result AllocationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	return &result, nil
}

// EncodeInputs serializes run inputs for the archive. Archived inputs are
// what the replay endpoint feeds back through the engine.
func EncodeInputs(in Inputs) ([]byte, error) {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling inputs: %w", err)
	}
	return data, nil
}

// DecodeInputs deserializes archived run inputs.
func DecodeInputs(data []byte) (Inputs, error) {
	var in Inputs
	if err := json.Unmarshal(data, &in); err != nil {
		return Inputs{}, fmt.Errorf("unmarshaling inputs: %w", err)
	}
	return in, nil
}
