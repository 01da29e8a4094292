package storage

import (
	"testing"

	"github.com/jchen-md/ringmd/internal/bead"
	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/sim"
)

func testResult() *sim.Result {
	res := &sim.Result{
		Steps:    2,
		FinalBox: bead.Box{Lx: 20, Ly: 20, Lz: 20},
	}
	for i := 0; i < 3; i++ {
		var diag [13]float64
		for j := range diag {
			diag[j] = float64(i*100 + j)
		}
		res.Series = append(res.Series, diag)
	}
	return res
}

func TestSaveListLoad(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	runID, err := store.Save(cfg, testResult())
	if err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("list returned %+v", runs)
	}

	meta, err := store.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.NBeads != cfg.NBeads || meta.Steps != 2 {
		t.Errorf("metadata %+v", meta)
	}
	if meta.FinalBox != [3]float64{20, 20, 20} {
		t.Errorf("final box %v", meta.FinalBox)
	}
}

func TestLoadSeries(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	runID, err := store.Save(config.DefaultConfig(), testResult())
	if err != nil {
		t.Fatal(err)
	}

	cols, err := store.LoadSeries(runID)
	if err != nil {
		t.Fatal(err)
	}
	for j, label := range sim.Labels {
		col := cols[label]
		if len(col) != 3 {
			t.Fatalf("%s: %d rows, want 3", label, len(col))
		}
		for i, v := range col {
			if v != float64(i*100+j) {
				t.Errorf("%s[%d] = %g, want %d", label, i, v, i*100+j)
			}
		}
	}
}

func TestListEmptyDir(t *testing.T) {
	store := New(t.TempDir() + "/missing")
	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
