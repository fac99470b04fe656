package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	logName := filepath.Join(dir, "glc.log")
	if err := os.WriteFile(logName, []byte("started\n"), 0644); err != nil {
		t.Fatal(err)
	}
	icons := filepath.Join(dir, "icons")
	if err := os.MkdirAll(icons, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(icons, "bus.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("final.log", logName)
	r.Store("icons", icons)
	r.Store("missing.log", filepath.Join(dir, "missing.log"))
	r.StoreData("style.json", []byte(`{"version": 8}`))
	r.StoreData("style.json", []byte(`{"version": 9}`))

	// stored files are read on close
	if err := os.WriteFile(logName, []byte("started\nfinished\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readArchive(t, conf.Destination)
	if files["final.log"] != "started\nfinished\n" {
		t.Errorf("final.log = %q", files["final.log"])
	}
	if files["icons/bus.png"] != "png" {
		t.Errorf("directory was not stored: %v", files)
	}
	if files["style.json"] != `{"version": 8}` {
		t.Errorf("style.json = %q", files["style.json"])
	}
	versioned := 0
	for name := range files {
		if strings.HasPrefix(name, "style.json-") {
			versioned++
		}
	}
	if versioned != 1 {
		t.Errorf("repeated data must be versioned: %v", files)
	}
	if _, ok := files["missing.log"]; ok {
		t.Error("absent files must be ignored")
	}
	if !strings.Contains(files["MANIFEST"], "missing.log") || !strings.Contains(files["MANIFEST"], "<14 bytes>") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}
}

func TestReport_Store_Overwrite(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("final.log", "a.log")
	r.Store("final.log", "a.log")

	defer func() {
		if recover() == nil {
			t.Error("Store() with different path must panic")
		}
	}()
	r.Store("final.log", "b.log")
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if r.Name() != "" {
		t.Error("nil report has no name")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}

	r = &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
