package testsupport

import (
	"context"
	"testing"

	"mptx/internal/config"
	"mptx/internal/journal"
)

// MustOpenJournal opens the config's launch journal and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Journal {
	t.Helper()

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = j.Close()
	})
	return j
}

// RecordLaunch inserts launch, filling the fields tests rarely care about.
func RecordLaunch(t testing.TB, j *journal.Journal, launch *journal.Launch) *journal.Launch {
	t.Helper()

	if launch.Target == "" {
		launch.Target = "webui"
	}
	if launch.Root == "" {
		launch.Root = "/srv/app"
	}
	if launch.Command == "" {
		launch.Command = "python -m streamlit run webui/Main.py"
	}
	if launch.Mode == "" {
		launch.Mode = journal.ModeExec
	}
	if err := j.Record(context.Background(), launch); err != nil {
		t.Fatalf("journal.Record: %v", err)
	}
	return launch
}
