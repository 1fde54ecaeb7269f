package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/auth"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/profile"
	"github.com/desertthunder/lovewrapped/internal/services"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	kv         store.KV
	db         *sql.DB
	creds      *store.CredentialStore
	flow       *auth.Flow
	client     services.DataClient
	profiles   *profile.Service
	history    *store.HistoryRepository
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// KV defaults to an in-memory store.
	KV store.KV
	// DB backs profile history; history commands are unavailable without it.
	DB         *sql.DB
	Client     services.DataClient
	Navigator  auth.Navigator
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.KV == nil {
		opts.KV = store.NewMemoryKV()
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.NewBrowser(opts.Output)
	}
	if opts.Client == nil {
		opts.Client = services.NewSpotifyClient(opts.Config.Credentials.Spotify.APIURL, opts.HTTPClient, opts.Logger)
	}

	creds := store.NewCredentialStore(opts.KV)
	flow := auth.NewFlow(opts.Config.Credentials.Spotify, creds, opts.Navigator, opts.Logger)
	if opts.HTTPClient != nil {
		flow.WithHTTPClient(opts.HTTPClient)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		kv:         opts.KV,
		db:         opts.DB,
		creds:      creds,
		flow:       flow,
		client:     opts.Client,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	var recorder profile.Recorder
	if opts.DB != nil {
		r.history = store.NewHistoryRepository(opts.DB)
		recorder = r.history
	}
	r.profiles = profile.NewService(profile.NewBuilder(opts.Client, opts.Logger), store.NewProfileStore(opts.KV), recorder, opts.Logger)

	return r
}

// SetLogger replaces the runner's logger. The flow and services keep the logger they were built with.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the key/value store and the history database.
func (r *Runner) Close() error {
	err := r.kv.Close()
	if r.db != nil {
		if sqlKV, ok := r.kv.(*store.SQLiteKV); !ok || sqlKV.DB() != r.db {
			err = errors.Join(err, r.db.Close())
		}
	}
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, profileCommand, partnerCommand, mergeCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireCredential returns the valid stored credential or [shared.ErrNotAuthenticated].
func (r *Runner) requireCredential(ctx context.Context) (*models.Credential, error) {
	cred, ok, err := r.flow.CurrentCredential(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: run `wrapped auth login` first", shared.ErrNotAuthenticated)
	}
	return cred, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
