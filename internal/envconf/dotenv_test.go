package envconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"mptx/internal/envconf"
)

func TestApplyDotEnvFillsOnlyUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "CHATTERBOX_DEVICE=cuda\nHF_TOKEN=\"abc 123\"\n# comment\nPYTHONWARNINGS=error\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	env := envconf.NewMapEnv([]string{"PYTHONWARNINGS=default"}, false)
	applied, err := envconf.ApplyDotEnv(env, path)
	if err != nil {
		t.Fatalf("ApplyDotEnv: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied values, got %+v", applied)
	}
	if applied[0].Name != "CHATTERBOX_DEVICE" || applied[1].Name != "HF_TOKEN" {
		t.Fatalf("expected sorted names, got %+v", applied)
	}
	if got, _ := env.LookupEnv("PYTHONWARNINGS"); got != "default" {
		t.Fatalf(".env overrode caller value: %q", got)
	}
	if got, _ := env.LookupEnv("HF_TOKEN"); got != "abc 123" {
		t.Fatalf("HF_TOKEN = %q", got)
	}
}

func TestApplyDotEnvMissingFile(t *testing.T) {
	env := envconf.NewMapEnv(nil, false)
	applied, err := envconf.ApplyDotEnv(env, filepath.Join(t.TempDir(), ".env"))
	if err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing applied, got %+v", applied)
	}
}

func TestDotEnvBeatsConfigDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CHATTERBOX_CFG_WEIGHT=0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := envconf.NewMapEnv(nil, false)
	applied, err := envconf.ApplyDotEnv(env, path)
	if err != nil {
		t.Fatal(err)
	}
	report, err := envconf.Configure(env, linuxOptions())
	if err != nil {
		t.Fatal(err)
	}
	report.MarkSource(applied)

	if got, _ := env.LookupEnv("CHATTERBOX_CFG_WEIGHT"); got != "0.5" {
		t.Fatalf("CHATTERBOX_CFG_WEIGHT = %q, want 0.5", got)
	}
	for _, a := range report.Assignments {
		if a.Name == "CHATTERBOX_CFG_WEIGHT" && a.Source != envconf.SourceDotEnv {
			t.Fatalf("source = %s, want dotenv", a.Source)
		}
	}
}

func TestMapEnvFoldCase(t *testing.T) {
	env := envconf.NewMapEnv([]string{"Path=C:\\bin"}, true)
	if got, ok := env.LookupEnv("PATH"); !ok || got != `C:\bin` {
		t.Fatalf("fold-case lookup failed: %q %v", got, ok)
	}
	if err := env.Setenv("PATH", `D:\x`); err != nil {
		t.Fatal(err)
	}
	if pairs := env.Environ(); len(pairs) != 1 || pairs[0] != `Path=D:\x` {
		t.Fatalf("unexpected pairs: %v", pairs)
	}

	strict := envconf.NewMapEnv([]string{"Path=/bin"}, false)
	if _, ok := strict.LookupEnv("PATH"); ok {
		t.Fatal("case-sensitive env should not match PATH")
	}
}
