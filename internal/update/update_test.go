package update

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solatis/antiseptic/internal/ruleset"
	"github.com/solatis/antiseptic/internal/types"
	"github.com/solatis/antiseptic/internal/version"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const remoteRules = `{
	"version": "2023010200",
	"homepage": "https://example.org",
	"rules": [
		{"id": "builtin1", "rule": "\\.", "sub": " ", "repeat": true},
		{"id": "builtin2", "rule": "_", "sub": " ", "repeat": true}
	]
}`

// fakeServer serves /latest and /rules.json. failFirst requests fail with 503.
type fakeServer struct {
	*httptest.Server
	latest    string
	rules     string
	failFirst atomic.Int32
	requests  atomic.Int32
}

func newFakeServer(t *testing.T, latest, rules string) *fakeServer {
	t.Helper()
	fs := &fakeServer{latest: latest, rules: rules}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := fs.requests.Add(1)
		if n <= fs.failFirst.Load() {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/latest":
			w.Write([]byte(fs.latest + "\n"))
		case "/rules.json":
			w.Write([]byte(fs.rules))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newUpdater(t *testing.T, base, path string) *Updater {
	t.Helper()
	return &Updater{
		Client: NewClient(base+"/", 3, 5*time.Second, nil),
		Path:   path,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func recordIDs(t *testing.T, path string) []string {
	t.Helper()
	doc, err := ruleset.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	var out []string
	for _, raw := range doc.Rules {
		id, _ := ruleset.RecordID(raw)
		out = append(out, string(id))
	}
	return out
}

func TestClient_URL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://naglis.github.io/antiseptic/", "https://naglis.github.io/antiseptic/latest"},
		{"https://naglis.github.io/antiseptic", "https://naglis.github.io/antiseptic/latest"},
		{"http://localhost:8080//", "http://localhost:8080/latest"},
	}
	for _, tt := range tests {
		c := &Client{BaseURL: tt.base}
		if got := c.URL("latest"); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestClient_LatestTrimsWhitespace(t *testing.T) {
	srv := newFakeServer(t, "  2023010200 ", remoteRules)
	c := NewClient(srv.URL, 3, time.Second, nil)

	got, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v, want nil", err)
	}
	if got != "2023010200" {
		t.Errorf("Latest() = %q, want %q", got, "2023010200")
	}
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	srv.failFirst.Store(2)
	c := NewClient(srv.URL, 3, time.Second, nil)

	got, err := c.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v, want nil", err)
	}
	if got != "2023010200" {
		t.Errorf("Latest() = %q, want %q", got, "2023010200")
	}
	if n := srv.requests.Load(); n != 3 {
		t.Errorf("requests = %d, want 3", n)
	}
}

func TestClient_Unavailable(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	srv.failFirst.Store(100)
	c := NewClient(srv.URL, 3, time.Second, nil)

	_, err := c.Latest(context.Background())
	if !errors.Is(err, types.ErrUpdateUnavailable) {
		t.Fatalf("Latest() error = %v, want ErrUpdateUnavailable", err)
	}
	if !errors.Is(err, types.ErrFetchFailure) {
		t.Errorf("Latest() error = %v, want it to carry the last ErrFetchFailure", err)
	}
	if n := srv.requests.Load(); n != 3 {
		t.Errorf("requests = %d, want exactly 3 attempts", n)
	}
}

func TestClient_NotFoundIsFetchFailure(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	f := &HTTPFetcher{Timeout: time.Second}

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, types.ErrFetchFailure) {
		t.Errorf("Fetch() error = %v, want ErrFetchFailure", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	c := NewClient(srv.URL, 3, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Latest(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Latest() error = %v, want context.Canceled", err)
	}
	if n := srv.requests.Load(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestClient_RulesWithoutRuleSection(t *testing.T) {
	srv := newFakeServer(t, "2023010200", `{"version": "2023010200"}`)
	c := NewClient(srv.URL, 1, time.Second, nil)

	_, err := c.Rules(context.Background())
	if !errors.Is(err, types.ErrMissingRuleSection) {
		t.Errorf("Rules() error = %v, want ErrMissingRuleSection", err)
	}
}

func TestMerge_PreservesCustomRules(t *testing.T) {
	existing := []byte(`{"version": "2023010100", "rules": [
		{"id": "builtin1", "rule": "old"},
		{"id": "_mine", "rule": "x", "sub": "y", "note": "kept as is"}
	]}`)
	fresh, err := ruleset.Parse([]byte(remoteRules))
	if err != nil {
		t.Fatal(err)
	}

	merged, report := Merge("rules.json", existing, fresh)

	var got []string
	for _, raw := range merged.Rules {
		id, _ := ruleset.RecordID(raw)
		got = append(got, string(id))
	}
	want := []string{"builtin1", "builtin2", "_mine"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if merged.Version != "2023010200" {
		t.Errorf("Version = %q, want %q", merged.Version, "2023010200")
	}
	if _, ok := merged.Meta["homepage"]; !ok {
		t.Errorf("Meta = %v, want fresh homepage kept", merged.Meta)
	}
	if report.Fresh != 2 || report.Custom != 1 || len(report.Warnings) != 0 {
		t.Errorf("report = %+v, want Fresh 2, Custom 1, no warnings", report)
	}

	var custom map[string]any
	if err := json.Unmarshal(merged.Rules[2], &custom); err != nil {
		t.Fatal(err)
	}
	if custom["note"] != "kept as is" {
		t.Errorf("custom record = %v, want unknown field kept", custom)
	}
}

func TestMerge_NoDedupeAgainstFresh(t *testing.T) {
	existing := []byte(`{"rules": [{"id": "_x", "rule": "a"}]}`)
	fresh, _ := ruleset.Parse([]byte(`{"version": "2", "rules": [{"id": "_x", "rule": "b"}]}`))

	merged, _ := Merge("", existing, fresh)
	if len(merged.Rules) != 2 {
		t.Errorf("len(Rules) = %d, want 2", len(merged.Rules))
	}
}

func TestMerge_MissingAndCorruptExisting(t *testing.T) {
	fresh, _ := ruleset.Parse([]byte(remoteRules))

	merged, report := Merge("rules.json", nil, fresh)
	if len(merged.Rules) != 2 || len(report.Warnings) != 0 {
		t.Errorf("missing existing: rules %d, warnings %v; want 2, none", len(merged.Rules), report.Warnings)
	}

	merged, report = Merge("rules.json", []byte("{not json"), fresh)
	if len(merged.Rules) != 2 {
		t.Errorf("corrupt existing: len(Rules) = %d, want 2", len(merged.Rules))
	}
	if len(report.Warnings) != 1 || !errors.Is(report.Warnings[0], types.ErrCorruptExistingRuleSet) {
		t.Errorf("corrupt existing: warnings = %v, want ErrCorruptExistingRuleSet", report.Warnings)
	}
}

func TestUpdater_Check(t *testing.T) {
	tests := []struct {
		name  string
		local string // empty: no local file
		want  version.Status
	}{
		{name: "no local rules", want: version.Stale},
		{name: "same version", local: `{"version": "2023010200", "rules": []}`, want: version.UpToDate},
		{name: "older revision", local: `{"version": "2023010100", "rules": []}`, want: version.Stale},
		{name: "newer local", local: `{"version": "2023010300", "rules": []}`, want: version.UpToDate},
		{name: "undecodable local version", local: `{"version": "v1", "rules": []}`, want: version.Stale},
		{name: "corrupt local file", local: `{`, want: version.Stale},
	}

	srv := newFakeServer(t, "2023010200", remoteRules)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.json")
			if tt.local != "" {
				writeFile(t, path, tt.local)
			}

			res, err := newUpdater(t, srv.URL, path).Check(context.Background())
			if err != nil {
				t.Fatalf("Check() error = %v, want nil", err)
			}
			if res.Status != tt.want {
				t.Errorf("Status = %v, want %v", res.Status, tt.want)
			}
			if res.Remote != "2023010200" {
				t.Errorf("Remote = %q, want %q", res.Remote, "2023010200")
			}
		})
	}
}

func TestUpdater_CheckInvalidRemote(t *testing.T) {
	srv := newFakeServer(t, "not-a-version", remoteRules)
	path := filepath.Join(t.TempDir(), "rules.json")

	_, err := newUpdater(t, srv.URL, path).Check(context.Background())
	if !errors.Is(err, types.ErrInvalidVersionFormat) {
		t.Errorf("Check() error = %v, want ErrInvalidVersionFormat", err)
	}
}

func TestUpdater_UpdateMergesAndPersists(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	path := filepath.Join(t.TempDir(), "rules.json")
	writeFile(t, path, `{"version": "2023010100", "rules": [
		{"id": "builtin1", "rule": "old"},
		{"id": "_mine", "rule": "x"}
	]}`)

	core, logs := observer.New(zapcore.InfoLevel)
	u := newUpdater(t, srv.URL, path)
	u.Logger = zap.New(core).Sugar()

	res, err := u.Update(context.Background(), false)
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
	if !res.Updated {
		t.Fatal("Updated = false, want true")
	}

	want := []string{"builtin1", "builtin2", "_mine"}
	if got := recordIDs(t, path); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", got, want)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n\t\"rules\": [") {
		t.Errorf("saved rules not tab indented:\n%s", data)
	}
	if strings.Index(string(data), `"homepage"`) > strings.Index(string(data), `"version"`) {
		t.Errorf("saved rules keys not sorted:\n%s", data)
	}
	if logs.FilterMessage("rules updated").Len() != 1 {
		t.Errorf("log entries = %v, want one rules updated", logs.All())
	}

	// Second run is a no-op
	res, err = u.Update(context.Background(), false)
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
	if res.Updated {
		t.Error("Updated = true on an up-to-date rule set, want false")
	}
}

func TestUpdater_Force(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	path := filepath.Join(t.TempDir(), "rules.json")
	writeFile(t, path, `{"version": "2023010200", "rules": [{"id": "stale", "rule": "x"}]}`)

	res, err := newUpdater(t, srv.URL, path).Update(context.Background(), true)
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
	if !res.Updated {
		t.Fatal("Updated = false, want true with force")
	}
	if got := recordIDs(t, path); strings.Join(got, ",") != "builtin1,builtin2" {
		t.Errorf("ids = %v, want [builtin1 builtin2]", got)
	}
}

func TestUpdater_UnavailableLeavesFileUntouched(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	srv.failFirst.Store(1000)
	path := filepath.Join(t.TempDir(), "rules.json")
	original := `{"version": "2023010100", "rules": [{"id": "_mine", "rule": "x"}]}`
	writeFile(t, path, original)

	_, err := newUpdater(t, srv.URL, path).Update(context.Background(), false)
	if !errors.Is(err, types.ErrUpdateUnavailable) {
		t.Fatalf("Update() error = %v, want ErrUpdateUnavailable", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("rules file changed to %q", data)
	}
}

func TestUpdater_CorruptExistingDropsCustom(t *testing.T) {
	srv := newFakeServer(t, "2023010200", remoteRules)
	path := filepath.Join(t.TempDir(), "rules.json")
	writeFile(t, path, `{"rules": [`)

	res, err := newUpdater(t, srv.URL, path).Update(context.Background(), false)
	if err != nil {
		t.Fatalf("Update() error = %v, want nil", err)
	}
	if len(res.Report.Warnings) != 1 || !errors.Is(res.Report.Warnings[0], types.ErrCorruptExistingRuleSet) {
		t.Errorf("warnings = %v, want ErrCorruptExistingRuleSet", res.Report.Warnings)
	}
	if got := recordIDs(t, path); strings.Join(got, ",") != "builtin1,builtin2" {
		t.Errorf("ids = %v, want [builtin1 builtin2]", got)
	}
}
