package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/sim"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	NBeads     int       `json:"nbeads"`
	Ensemble   string    `json:"ensemble"`
	Integrator string    `json:"integrator"`
	Thermostat string    `json:"thermostat"`
	Dt         float64   `json:"dt"`
	Steps      int       `json:"steps"`
	Temp       float64   `json:"temp"`
	Seed       uint64    `json:"seed"`
	FinalBox   [3]float64 `json:"final_box"`
}

// Save writes one run directory: metadata.json, the resolved config as
// config.yaml, and the per-step diagnostics as diagnostics.csv.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_p%d_%d", cfg.Ensemble, cfg.NBeads, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Timestamp:  time.Now(),
		NBeads:     cfg.NBeads,
		Ensemble:   cfg.Ensemble,
		Integrator: cfg.Integrator,
		Thermostat: cfg.Thermostat,
		Dt:         cfg.Dt,
		Steps:      result.Steps,
		Temp:       cfg.Temp,
		Seed:       cfg.Seed,
		FinalBox:   [3]float64{result.FinalBox.Lx, result.FinalBox.Ly, result.FinalBox.Lz},
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, "config.yaml"), cfg); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "diagnostics.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	header := []string{"step"}
	header = append(header, sim.Labels[:]...)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, diag := range result.Series {
		row := make([]string, 0, 1+len(diag))
		row = append(row, strconv.Itoa(i))
		for _, val := range diag {
			row = append(row, strconv.FormatFloat(val, 'g', 12, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadSeries reads a saved diagnostics table back as one column per
// label, keyed by label name.
func (s *Store) LoadSeries(runID string) (map[string][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "diagnostics.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return map[string][]float64{}, nil
	}

	header := records[0]
	cols := make(map[string][]float64, len(header)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		for j := 1; j < len(record) && j < len(header); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			cols[header[j]] = append(cols[header[j]], val)
		}
	}

	return cols, nil
}
