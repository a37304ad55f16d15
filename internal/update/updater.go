package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/solatis/antiseptic/internal/ruleset"
	"github.com/solatis/antiseptic/internal/version"
	"go.uber.org/zap"
)

// Updater keeps a local rule file in sync with an update server.
type Updater struct {
	Client *Client
	Path   string
	Logger *zap.SugaredLogger
}

// CheckResult is the outcome of a freshness check. Local is empty when
// there is no local rule set.
type CheckResult struct {
	Local  string
	Remote string
	Status version.Status
}

// UpdateResult is the outcome of Update. Updated is false when the local
// rule set was already current and force was not set.
type UpdateResult struct {
	CheckResult
	Updated bool
	Report  MergeReport
}

// Check compares the local rule set version against the server's latest.
// A local version that cannot be read or decoded counts as stale.
func (u *Updater) Check(ctx context.Context) (CheckResult, error) {
	var res CheckResult

	remote, err := u.Client.Latest(ctx)
	if err != nil {
		return res, err
	}
	res.Remote = remote

	rv, err := version.Decode(remote)
	if err != nil {
		return res, fmt.Errorf("remote version: %w", err)
	}

	local, token, known := u.localVersion()
	res.Local = token
	if !known {
		res.Status = version.Stale
		return res, nil
	}
	res.Status = version.Compare(local, rv)
	return res, nil
}

// Update fetches, merges and persists the remote rule set when it is newer,
// or unconditionally when force is set. Nothing is written on failure.
func (u *Updater) Update(ctx context.Context, force bool) (UpdateResult, error) {
	var res UpdateResult

	check, err := u.Check(ctx)
	if err != nil {
		return res, err
	}
	res.CheckResult = check

	if !force && check.Status == version.UpToDate {
		u.logger().Infow("rules are up to date", "version", check.Local)
		return res, nil
	}

	fresh, err := u.Client.Rules(ctx)
	if err != nil {
		return res, err
	}

	existing, err := os.ReadFile(u.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return res, fmt.Errorf("failed to read %s: %w", u.Path, err)
		}
		existing = nil
	}

	merged, report := Merge(u.Path, existing, fresh)
	for _, w := range report.Warnings {
		u.logger().Warnw("failed to load the old rules", "path", u.Path, "error", w)
	}
	res.Report = report

	if err := ruleset.WriteFile(u.Path, merged); err != nil {
		return res, fmt.Errorf("failed to save rules: %w", err)
	}
	res.Updated = true

	u.logger().Infow("rules updated", "version", merged.Version, "rules", report.Fresh, "custom", report.Custom)
	return res, nil
}

// localVersion returns the decoded local version and its raw token.
// known is false when freshness cannot be determined.
func (u *Updater) localVersion() (v version.Version, token string, known bool) {
	doc, err := ruleset.ParseFile(u.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return version.Zero, "", true
		}
		u.logger().Warnw("failed to load the old rules", "path", u.Path, "error", err)
		return version.Zero, "", false
	}
	if doc.Version == "" {
		return version.Zero, "", true
	}
	v, err = version.Decode(doc.Version)
	if err != nil {
		u.logger().Warnw("cannot determine local rules version", "path", u.Path, "error", err)
		return version.Zero, doc.Version, false
	}
	return v, doc.Version, true
}

func (u *Updater) logger() *zap.SugaredLogger {
	if u.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return u.Logger
}
