package ledger

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"verisend/internal/dispatch"
)

func TestPersistLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resend.yaml")
	rows := map[dispatch.Tier][]dispatch.Row{
		dispatch.Tier1: {{
			Name: "Alice", Phone: "100", Message: "reminder", Tier: dispatch.Tier1,
			Customer: "Acme", Invoice: "INV-7", Amount: 1250.50,
		}},
		dispatch.Tier3: {{
			Name: "Bob", Phone: "200", Message: "final notice", Tier: dispatch.Tier3,
			DirectorName: "Dana", DirectorPhone: "201",
			LeaderName: "Lee", LeaderPhone: "202",
		}},
	}
	res := dispatch.Result{Failed: 2, Failures: rows}

	if err := Persist(path, res); err != nil {
		t.Fatalf("persist: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	// Tier order, every field intact.
	if !reflect.DeepEqual(got[0], rows[dispatch.Tier1][0]) {
		t.Errorf("tier1 row mangled:\n got %+v\nwant %+v", got[0], rows[dispatch.Tier1][0])
	}
	if !reflect.DeepEqual(got[1], rows[dispatch.Tier3][0]) {
		t.Errorf("tier3 row mangled:\n got %+v\nwant %+v", got[1], rows[dispatch.Tier3][0])
	}
}

func TestPersistCleanRunRemovesArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resend.yaml")
	if err := os.WriteFile(path, []byte("tier1:\n  - phone: \"1\"\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := dispatch.Result{Succeeded: 3, Failures: map[dispatch.Tier][]dispatch.Row{}}
	if err := Persist(path, res); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("stale artifact survived a clean run")
	}
}

func TestPersistAbortedRunKeepsArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resend.yaml")
	if err := os.WriteFile(path, []byte("tier1:\n  - phone: \"1\"\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := dispatch.Result{Aborted: true, Failures: map[dispatch.Tier][]dispatch.Row{}}
	if err := Persist(path, res); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("artifact removed after an aborted run")
	}
}

func TestLoadStampsSectionTier(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resend.yaml")
	// Hand-edited file where a row's tier disagrees with its section.
	body := "tier2:\n  - phone: \"100\"\n    message: hi\n    tier: tier1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 || rows[0].Tier != dispatch.Tier2 {
		t.Fatalf("rows = %+v, want one tier2 row", rows)
	}
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.csv")
	body := "Customer,Name,Phone,Message,Tier,Director,Director_Phone,Leader,Leader_Phone,Invoice,Amount\n" +
		"Acme,Alice,100,pay up,30,Dana,201,,,INV-7,\"1,250.50\"\n" +
		"Globex,Bob,200,final notice,90d,Dana,201,Lee,202,INV-9,75\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := dispatch.Row{
		Name: "Alice", Phone: "100", Message: "pay up", Tier: dispatch.Tier1,
		DirectorName: "Dana", DirectorPhone: "201",
		Customer: "Acme", Invoice: "INV-7", Amount: 1250.50,
	}
	if !reflect.DeepEqual(rows[0], want) {
		t.Errorf("row 0:\n got %+v\nwant %+v", rows[0], want)
	}
	if rows[1].Tier != dispatch.Tier3 || rows[1].LeaderPhone != "202" || rows[1].Amount != 75 {
		t.Errorf("row 1 mangled: %+v", rows[1])
	}
}

func TestLoadCSVRejectsBadTier(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.csv")
	body := "phone,message,tier\n100,hi,someday\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := LoadBatch(path); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestLoadBatchUnsupportedExtension(t *testing.T) {
	t.Parallel()

	if _, err := LoadBatch("batch.xlsx"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
