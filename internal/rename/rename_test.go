package rename

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/antiseptic/internal/journal"
	"github.com/solatis/antiseptic/internal/rules"
	"github.com/solatis/antiseptic/internal/types"
)

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Prompt(question string, choices []string, def string) (string, error) {
	p.asked = append(p.asked, question+":"+def)
	if len(p.answers) == 0 {
		return "", types.ErrQuit
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == "" {
		return def, nil
	}
	return a, nil
}

type record struct {
	op             types.Operation
	source, target string
	applied        []types.RuleID
}

type memRecorder struct {
	records []record
}

func (m *memRecorder) Record(_ context.Context, op types.Operation, source, target string, applied []types.RuleID) (journal.Entry, error) {
	m.records = append(m.records, record{op, source, target, applied})
	return journal.Entry{ID: types.NewEntryID(), Operation: op, Source: source, Target: target}, nil
}

type failingCleaner struct{}

func (failingCleaner) Name() string { return "failing" }
func (failingCleaner) Clean(name string) (types.CleanResult, error) {
	return types.CleanResult{Text: name}, types.ErrNoTitle
}

func dotsEngine(t *testing.T) *rules.Engine {
	t.Helper()
	store, _, err := rules.Load([]byte(`{"rules": [
		{"id": "dots", "rule": "\\.", "sub": " ", "repeat": true},
		{"id": "year", "rule": " (\\d{4})$", "sub": " (\\1)", "weight": 1}
	]}`), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return rules.NewEngine(store, nil)
}

func newRenamer(t *testing.T, opts Options, answers ...string) (*Renamer, *scriptedPrompter, *memRecorder, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	p := &scriptedPrompter{answers: answers}
	rec := &memRecorder{}
	return &Renamer{
		Cleaner:  dotsEngine(t),
		Prompter: p,
		Recorder: rec,
		Out:      &out,
		Options:  opts,
	}, p, rec, &out
}

func mkdir(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestRenameDir_Confirmed(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "Movie.Name.2020"))
	r, p, rec, out := newRenamer(t, Options{}, "y")

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil {
		t.Fatalf("RenameDir() error = %v", err)
	}
	if outcome != Done {
		t.Errorf("outcome = %v, want done", outcome)
	}

	target := filepath.Join(root, "Movie Name (2020)")
	if !exists(target) || exists(src) {
		t.Errorf("after rename: target exists %v, source exists %v", exists(target), exists(src))
	}
	if !strings.Contains(out.String(), "- Movie.Name.2020\n+ Movie Name (2020)\n") {
		t.Errorf("output = %q, want diff", out.String())
	}
	if len(p.asked) != 1 || p.asked[0] != "Apply:n" {
		t.Errorf("asked = %v, want [Apply:n]", p.asked)
	}
	if len(rec.records) != 1 {
		t.Fatalf("records = %v, want 1", rec.records)
	}
	got := rec.records[0]
	if got.op != types.OpRename || got.source != src || got.target != target {
		t.Errorf("record = %+v", got)
	}
	if joinIDs(got.applied) != "dots, year" {
		t.Errorf("applied = %v, want [dots year]", got.applied)
	}
}

func TestRenameDir_DefaultNo(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	r, _, rec, _ := newRenamer(t, Options{}, "")

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil {
		t.Fatalf("RenameDir() error = %v", err)
	}
	if outcome != Skipped || !exists(src) || len(rec.records) != 0 {
		t.Errorf("outcome = %v, source exists %v, records %d; want skipped, true, 0", outcome, exists(src), len(rec.records))
	}
}

func TestRenameDir_DefaultYes(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	r, p, _, _ := newRenamer(t, Options{DefaultChoice: "y"}, "")

	if _, err := r.RenameDir(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if p.asked[0] != "Apply:y" {
		t.Errorf("asked = %v, want default y", p.asked)
	}
	if !exists(filepath.Join(root, "a b")) {
		t.Error("directory not renamed on default yes")
	}
}

func TestRenameDir_DryRun(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	r, p, rec, out := newRenamer(t, Options{DryRun: true})

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != Planned {
		t.Errorf("outcome = %v, want planned", outcome)
	}
	if !exists(src) || len(p.asked) != 0 || len(rec.records) != 0 {
		t.Error("dry run touched the filesystem, prompted or recorded")
	}
	if !strings.Contains(out.String(), "+ a b") {
		t.Errorf("output = %q, want diff", out.String())
	}
}

func TestRenameDir_Auto(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	r, p, rec, _ := newRenamer(t, Options{Auto: true})

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil || outcome != Done {
		t.Fatalf("RenameDir() = (%v, %v), want done", outcome, err)
	}
	if len(p.asked) != 0 {
		t.Errorf("asked = %v, want no prompt", p.asked)
	}
	if len(rec.records) != 1 {
		t.Errorf("records = %d, want 1", len(rec.records))
	}
}

func TestRenameDir_Unchanged(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "Clean Name"))
	r, p, _, out := newRenamer(t, Options{})

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil || outcome != Unchanged {
		t.Errorf("RenameDir() = (%v, %v), want unchanged", outcome, err)
	}
	if len(p.asked) != 0 || out.Len() != 0 {
		t.Error("unchanged name prompted or printed")
	}
}

func TestRenameDir_Quit(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	r, _, _, _ := newRenamer(t, Options{}, "q")

	_, err := r.RenameDir(context.Background(), src)
	if !errors.Is(err, types.ErrQuit) {
		t.Errorf("RenameDir() error = %v, want ErrQuit", err)
	}
	if !exists(src) {
		t.Error("quit still renamed")
	}
}

func TestRenameDir_TargetExists(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "a.b"))
	mkdir(t, filepath.Join(root, "a b"))
	r, _, rec, _ := newRenamer(t, Options{Auto: true})

	outcome, err := r.RenameDir(context.Background(), src)
	if err == nil || outcome != Failed {
		t.Errorf("RenameDir() = (%v, %v), want failed with error", outcome, err)
	}
	if !exists(src) || len(rec.records) != 0 {
		t.Error("existing target was overwritten or recorded")
	}
}

func TestRenameDir_StrategyFailureSkips(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, filepath.Join(root, "???"))
	r, _, _, _ := newRenamer(t, Options{Auto: true})
	r.Cleaner = failingCleaner{}

	outcome, err := r.RenameDir(context.Background(), src)
	if err != nil || outcome != Skipped {
		t.Errorf("RenameDir() = (%v, %v), want skipped without error", outcome, err)
	}
}

func TestWrapFile(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "Movie.Name.2020.mkv"))
	r, p, rec, out := newRenamer(t, Options{}, "y")

	outcome, err := r.WrapFile(context.Background(), src)
	if err != nil || outcome != Done {
		t.Fatalf("WrapFile() = (%v, %v), want done", outcome, err)
	}

	target := filepath.Join(root, "Movie Name (2020)", "Movie.Name.2020.mkv")
	if !exists(target) || exists(src) {
		t.Errorf("after wrap: target exists %v, source exists %v", exists(target), exists(src))
	}
	if !strings.Contains(out.String(), "New directory name: Movie Name (2020)") {
		t.Errorf("output = %q", out.String())
	}
	if p.asked[0] != "Wrap:n" {
		t.Errorf("asked = %v, want Wrap prompt", p.asked)
	}
	if len(rec.records) != 1 || rec.records[0].op != types.OpWrap || rec.records[0].target != target {
		t.Errorf("records = %+v", rec.records)
	}
}

func TestWrapFile_DirectoryExists(t *testing.T) {
	root := t.TempDir()
	src := touch(t, filepath.Join(root, "a.b.mkv"))
	mkdir(t, filepath.Join(root, "a b"))
	r, _, _, _ := newRenamer(t, Options{Auto: true})

	outcome, err := r.WrapFile(context.Background(), src)
	if err == nil || outcome != Failed {
		t.Errorf("WrapFile() = (%v, %v), want failed", outcome, err)
	}
	if !exists(src) {
		t.Error("file moved despite existing directory")
	}
}

func TestRun_QuitStopsWithoutError(t *testing.T) {
	root := t.TempDir()
	for _, n := range []string{"a.1", "b.2", "c.3"} {
		mkdir(t, filepath.Join(root, n))
	}
	dirs, err := ListDirs(root)
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, _ := newRenamer(t, Options{}, "y", "q")

	summary, err := r.Run(context.Background(), dirs, r.RenameDir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !summary.Quit {
		t.Error("Quit = false, want true")
	}
	if summary.Counts[Done] != 1 {
		t.Errorf("done = %d, want 1", summary.Counts[Done])
	}
	if !exists(filepath.Join(root, "a 1")) || !exists(filepath.Join(root, "b.2")) || !exists(filepath.Join(root, "c.3")) {
		t.Error("unexpected filesystem state after quit")
	}
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	root := t.TempDir()
	a := mkdir(t, filepath.Join(root, "a.1"))
	mkdir(t, filepath.Join(root, "a 1"))
	b := mkdir(t, filepath.Join(root, "b.2"))
	r, _, _, _ := newRenamer(t, Options{Auto: true})

	summary, err := r.Run(context.Background(), []string{a, b}, r.RenameDir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Counts[Failed] != 1 || summary.Counts[Done] != 1 {
		t.Errorf("counts = %v, want 1 failed, 1 done", summary.Counts)
	}
}

func TestListDirsAndFiles(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "b"))
	mkdir(t, filepath.Join(root, "a"))
	touch(t, filepath.Join(root, "f.mkv"))
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "z-link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "f.mkv"), filepath.Join(root, "g.mkv")); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirs(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "a"), filepath.Join(root, "b")}
	if strings.Join(dirs, ",") != strings.Join(want, ",") {
		t.Errorf("ListDirs() = %v, want %v", dirs, want)
	}

	files, err := ListFiles(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != filepath.Join(root, "f.mkv") {
		t.Errorf("ListFiles() = %v, want [f.mkv]", files)
	}

	if _, err := ListDirs(filepath.Join(root, "missing")); err == nil {
		t.Error("ListDirs(missing) error = nil, want error")
	}
}

func TestValidName(t *testing.T) {
	for _, bad := range []string{"", "  ", ".", "..", "a/b"} {
		if validName(bad) == nil {
			t.Errorf("validName(%q) = nil, want error", bad)
		}
	}
	if err := validName("Movie (2020)"); err != nil {
		t.Errorf("validName() = %v, want nil", err)
	}
}

func TestRenameDir_RecordsAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	mkdir(t, filepath.Join(root, "Movie.Name.2020"))
	j, err := journal.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	r, _, _, _ := newRenamer(t, Options{Auto: true})
	r.Recorder = j

	chdir(t, root)
	if _, err := r.RenameDir(context.Background(), "Movie.Name.2020"); err != nil {
		t.Fatalf("RenameDir() error = %v", err)
	}

	entries, err := j.List(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("List() = (%v, %v), want one entry", entries, err)
	}
	if !filepath.IsAbs(entries[0].Source) || !filepath.IsAbs(entries[0].Target) {
		t.Errorf("recorded (%q, %q), want absolute paths", entries[0].Source, entries[0].Target)
	}

	// Undo from an unrelated directory still finds the renamed directory
	chdir(t, t.TempDir())
	if _, err := j.Undo(context.Background(), string(entries[0].ID)); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if !exists(filepath.Join(root, "Movie.Name.2020")) || exists(filepath.Join(root, "Movie Name (2020)")) {
		t.Error("undo did not restore the original directory")
	}
}

func TestWrapFile_RelativePath(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.b.mkv"))
	r, _, rec, _ := newRenamer(t, Options{Auto: true})

	chdir(t, root)
	if _, err := r.WrapFile(context.Background(), "a.b.mkv"); err != nil {
		t.Fatalf("WrapFile() error = %v", err)
	}
	want := filepath.Join(root, "a b", "a.b.mkv")
	if len(rec.records) != 1 || rec.records[0].target != want || rec.records[0].source != filepath.Join(root, "a.b.mkv") {
		t.Errorf("records = %+v, want absolute source and target %s", rec.records, want)
	}
}

func TestPathKindChecks(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, filepath.Join(root, "Some.Dir.mkv"))
	file := touch(t, filepath.Join(root, "some.file"))
	r, _, rec, _ := newRenamer(t, Options{Auto: true})

	outcome, err := r.WrapFile(context.Background(), dir)
	if err == nil || outcome != Failed {
		t.Errorf("WrapFile(dir) = (%v, %v), want failed", outcome, err)
	}
	if !exists(dir) || exists(filepath.Join(root, "Some Dir")) {
		t.Error("WrapFile moved a directory")
	}

	outcome, err = r.RenameDir(context.Background(), file)
	if err == nil || outcome != Failed {
		t.Errorf("RenameDir(file) = (%v, %v), want failed", outcome, err)
	}
	if !exists(file) {
		t.Error("RenameDir renamed a file")
	}

	if _, err := r.RenameDir(context.Background(), filepath.Join(root, "missing")); err == nil {
		t.Error("RenameDir(missing) error = nil, want error")
	}
	if len(rec.records) != 0 {
		t.Errorf("records = %+v, want none", rec.records)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
