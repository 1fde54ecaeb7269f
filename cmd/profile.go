package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/lovewrapped/internal/formatter"
	"github.com/desertthunder/lovewrapped/internal/profile"
	"github.com/desertthunder/lovewrapped/internal/services"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	"github.com/desertthunder/lovewrapped/internal/tasks"
	"github.com/desertthunder/lovewrapped/internal/ui"
	"github.com/urfave/cli/v3"
)

// ProfileBuild builds the caller's profile from the remote API and stores it as Side A.
//
// A rejected credential is cleared so the next command asks for a new login.
func (r *Runner) ProfileBuild(ctx context.Context, cmd *cli.Command) error {
	cred, err := r.requireCredential(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("building profile")

	p, err := r.profiles.BuildAndStore(ctx, *cred)
	if err != nil {
		if services.IsAuthFailure(err) {
			r.logger.Warn("credential rejected, logging out", "error", err)
			if lerr := r.flow.Logout(ctx); lerr != nil {
				r.logger.Error("failed to clear credential", "error", lerr)
			}
			return fmt.Errorf("%w: run `wrapped auth login` again", err)
		}
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", ui.RenderProfile(*p))
}

// ProfileShow prints a stored profile.
func (r *Runner) ProfileShow(ctx context.Context, cmd *cli.Command) error {
	slot, err := store.ParseSlot(cmd.String("slot"))
	if err != nil {
		return err
	}

	p, err := r.profiles.Load(ctx, slot)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", ui.RenderProfile(*p))
}

// ProfileExport writes a stored profile in the requested format.
func (r *Runner) ProfileExport(ctx context.Context, cmd *cli.Command) error {
	slot, err := store.ParseSlot(cmd.String("slot"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	p, err := r.profiles.Load(ctx, slot)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(*p, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("profile exported", "slot", slot, "format", format, "path", path)
	return r.writePlain("✓ Exported %s profile to %s\n", slot, path)
}

// ProfileHistory lists archived builds, or prints one with --id.
func (r *Runner) ProfileHistory(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: profile history needs the sqlite database", shared.ErrServiceUnavailable)
	}

	if id := cmd.String("id"); id != "" {
		entry, err := r.history.Get(ctx, id)
		if err != nil {
			return err
		}
		p, err := profile.Decode(entry.Payload)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(p, true)
		}
		return r.writePlain("%s\n", ui.RenderProfile(*p))
	}

	userID, err := r.historyUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	entries, err := r.history.List(ctx, userID, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, false)
	}

	r.writePlainHeader(fmt.Sprintf("Profile history for %s (%d)", userID, len(entries)))
	for _, e := range entries {
		r.writePlain("%s  %s\n", e.ID, e.BuiltAt.Local().Format(time.DateTime))
	}
	return nil
}

// ProfileHistoryExport writes every archived build for a user with the bulk export engine.
func (r *Runner) ProfileHistoryExport(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: profile history needs the sqlite database", shared.ErrServiceUnavailable)
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	userID, err := r.historyUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	entries, err := r.history.List(ctx, userID, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: no archived builds for %s", shared.ErrProfileNotFound, userID)
	}

	prog := make(chan tasks.ProgressUpdate, len(entries)+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := tasks.NewExportEngine(r.logger).BulkExport(ctx, prog, entries, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("✓ Exported %d of %d builds to %s", result.Successful, result.Total, result.OutputDirectory)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d builds could not be exported", shared.ErrValidation, result.Failed)
	}
	return nil
}

// ProfileHistoryDelete removes one archived build.
func (r *Runner) ProfileHistoryDelete(ctx context.Context, cmd *cli.Command) error {
	if r.history == nil {
		return fmt.Errorf("%w: profile history needs the sqlite database", shared.ErrServiceUnavailable)
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: history entry id", shared.ErrMissingArgument)
	}
	if err := r.history.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// historyUser falls back to the stored self profile's user id.
func (r *Runner) historyUser(ctx context.Context, userID string) (string, error) {
	if userID != "" {
		return userID, nil
	}
	self, err := r.profiles.Load(ctx, store.SlotSelf)
	if err != nil {
		return "", fmt.Errorf("%w: pass --user or build a profile first", err)
	}
	return self.UserID, nil
}

// PartnerImport validates and stores a partner's exported profile as Side B.
func (r *Runner) PartnerImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: profile path", shared.ErrMissingArgument)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	p, err := r.profiles.ImportPartner(ctx, data)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Imported partner profile for %s\n", formatter.Title(*p))
}

// PartnerClear removes Side B.
func (r *Runner) PartnerClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.profiles.ClearPartner(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Partner profile removed\n")
}

// Merge compares Side A with Side B.
func (r *Runner) Merge(ctx context.Context, cmd *cli.Command) error {
	me, partner, view, err := r.profiles.Merged(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNoPartner) {
			return fmt.Errorf("%w: run `wrapped partner import <file>` first", err)
		}
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(view, cmd.Bool("pretty"))
	case cmd.Bool("markdown"):
		return r.writePlain("%s", formatter.MergedMarkdown(*me, *partner, view))
	default:
		return r.writePlain("%s\n", ui.RenderMerged(*me, *partner, view))
	}
}
