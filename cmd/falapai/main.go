// Package main provides the FalaPai command-line entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/app/phrases"
	"github.com/osa030/falapai/internal/app/playback"
	"github.com/osa030/falapai/internal/infra/audio"
	"github.com/osa030/falapai/internal/infra/config"
	"github.com/osa030/falapai/internal/infra/elevenlabs"
	"github.com/osa030/falapai/internal/infra/logger"
	"github.com/osa030/falapai/internal/infra/storage"
)

var (
	app        = kingpin.New("falapai", "Speak typed text and saved phrases aloud")
	configPath = app.Flag("config", "Path to config file").Default("config/falapai.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// say command
	sayCmd  = app.Command("say", "Speak a text once and exit")
	sayText = sayCmd.Arg("text", "Text to speak").Required().String()

	// console command (default)
	consoleCmd = app.Command("console", "Interactive speaking console").Default()

	// phrases commands
	phrasesCmd        = app.Command("phrases", "Manage quick phrases")
	phrasesListCmd    = phrasesCmd.Command("list", "List quick phrases")
	phrasesAddCmd     = phrasesCmd.Command("add", "Add a quick phrase")
	phrasesAddText    = phrasesAddCmd.Arg("text", "Phrase").Required().String()
	phrasesEditCmd    = phrasesCmd.Command("edit", "Replace a quick phrase")
	phrasesEditOld    = phrasesEditCmd.Arg("old", "Current phrase").Required().String()
	phrasesEditNew    = phrasesEditCmd.Arg("new", "New phrase").Required().String()
	phrasesDeleteCmd  = phrasesCmd.Command("delete", "Delete a quick phrase")
	phrasesDeleteText = phrasesDeleteCmd.Arg("text", "Phrase").Required().String()
	phrasesMoveCmd    = phrasesCmd.Command("move", "Move a quick phrase")
	phrasesMoveFrom   = phrasesMoveCmd.Arg("from", "Current position (1-based)").Required().Int()
	phrasesMoveTo     = phrasesMoveCmd.Arg("to", "New position (1-based)").Required().Int()

	// texts commands
	textsCmd         = app.Command("texts", "Manage saved texts")
	textsListCmd     = textsCmd.Command("list", "List saved texts")
	textsAddCmd      = textsCmd.Command("add", "Save a text")
	textsAddTitle    = textsAddCmd.Arg("title", "Title").Required().String()
	textsAddContent  = textsAddCmd.Arg("content", "Content").Required().String()
	textsEditCmd     = textsCmd.Command("edit", "Replace a saved text")
	textsEditID      = textsEditCmd.Arg("id", "Saved text ID").Required().String()
	textsEditTitle   = textsEditCmd.Arg("title", "New title").Required().String()
	textsEditContent = textsEditCmd.Arg("content", "New content").Required().String()
	textsDeleteCmd   = textsCmd.Command("delete", "Delete a saved text")
	textsDeleteID    = textsDeleteCmd.Arg("id", "Saved text ID").Required().String()
	textsMoveCmd     = textsCmd.Command("move", "Move a saved text")
	textsMoveFrom    = textsMoveCmd.Arg("from", "Current position (1-based)").Required().Int()
	textsMoveTo      = textsMoveCmd.Arg("to", "New position (1-based)").Required().Int()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{Level: "info", File: *logfile}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Debug().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(command, cfg); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the selected command. Using a separate function ensures
// deferred cleanup runs even when returning with an error.
func run(command string, cfg *config.Config) error {
	kv, err := storage.Open(storage.Config{Path: cfg.Storage.Path, InMemory: cfg.Storage.InMemory})
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			zlog.Error().Msgf("Failed to close storage: %v", err)
		}
	}()

	store, err := phrases.New(kv, cfg.Phrases.Seed)
	if err != nil {
		return errors.Wrap(err, "failed to load phrases")
	}

	switch command {
	case phrasesListCmd.FullCommand():
		printQuickPhrases(os.Stdout, store.QuickPhrases())
		return nil
	case phrasesAddCmd.FullCommand():
		return store.AddQuickPhrase(*phrasesAddText)
	case phrasesEditCmd.FullCommand():
		return store.EditQuickPhrase(*phrasesEditOld, *phrasesEditNew)
	case phrasesDeleteCmd.FullCommand():
		return store.DeleteQuickPhrase(*phrasesDeleteText)
	case phrasesMoveCmd.FullCommand():
		return store.ReorderQuickPhrases(*phrasesMoveFrom-1, *phrasesMoveTo-1)
	case textsListCmd.FullCommand():
		printSavedTexts(os.Stdout, store.SavedTexts())
		return nil
	case textsAddCmd.FullCommand():
		return store.AddSavedText(*textsAddTitle, *textsAddContent)
	case textsEditCmd.FullCommand():
		return editSavedText(store, *textsEditID, *textsEditTitle, *textsEditContent)
	case textsDeleteCmd.FullCommand():
		return store.DeleteSavedTextByID(*textsDeleteID)
	case textsMoveCmd.FullCommand():
		return store.ReorderSavedTexts(*textsMoveFrom-1, *textsMoveTo-1)
	}

	ctrl, err := newController(cfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// Stop speaking on Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	switch command {
	case sayCmd.FullCommand():
		return say(ctrl, *sayText, sigCh, os.Stdout)
	case consoleCmd.FullCommand():
		return newConsole(ctrl, store, os.Stdin, os.Stdout).run(sigCh)
	}
	return errors.Newf("unknown command: %s", command)
}

// newController wires the synthesizer and audio output into a playback controller.
func newController(cfg *config.Config) (*playback.Controller, error) {
	synth, err := elevenlabs.New(elevenlabs.Config{
		APIKey:          cfg.ElevenLabs.APIKey,
		BaseURL:         cfg.ElevenLabs.BaseURL,
		VoiceID:         cfg.ElevenLabs.VoiceID,
		ModelID:         cfg.ElevenLabs.ModelID,
		Stability:       cfg.ElevenLabs.Stability,
		SimilarityBoost: cfg.ElevenLabs.SimilarityBoost,
		Timeout:         cfg.ElevenLabs.Timeout(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ElevenLabs client")
	}

	player, err := audio.NewPlayerFromConfig(cfg.Output)
	if err != nil {
		return nil, err
	}

	return playback.NewController(synth, player, playback.Config{
		SynthesisTimeout: cfg.Playback.SynthesisTimeout(),
		Messages: playback.Messages{
			Authentication: cfg.Messages.AuthenticationFailure,
			Service:        cfg.Messages.ServiceFailure,
			Transport:      cfg.Messages.TransportFailure,
			Playback:       cfg.Messages.PlaybackFailure,
		},
	}), nil
}

func editSavedText(store *phrases.Store, id, title, content string) error {
	for _, t := range store.SavedTexts() {
		if t.ID == id {
			t.Title = title
			t.Content = content
			return store.EditSavedTextByID(id, t)
		}
	}
	return errors.Newf("saved text not found: %s", id)
}
