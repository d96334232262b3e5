// Package main provides the CLI entrypoint for tuibeat.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuibeat/internal/config"
	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/music"
	"github.com/verte-zerg/tuibeat/internal/player"
	"github.com/verte-zerg/tuibeat/internal/settings"
	"github.com/verte-zerg/tuibeat/internal/speech"
	"github.com/verte-zerg/tuibeat/internal/stats"
	"github.com/verte-zerg/tuibeat/internal/store"
	"github.com/verte-zerg/tuibeat/internal/tone"
	"github.com/verte-zerg/tuibeat/internal/tui"
	"github.com/verte-zerg/tuibeat/internal/workout"
)

var (
	playBPM          int
	playSound        string
	playCustomSound  string
	playCount        bool
	playCountMax     int
	playLang         string
	playGender       string
	playBeatVolume   float64
	playVoiceVolume  float64
	playMusic        bool
	playMusicVolume  float64
	playMusicDir     string
	playTimer        bool
	playTimerMinutes int
	playPreset       string
	playHeadless     bool
	logLevel         string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuibeat",
		Short:         "Terminal workout metronome with spoken counting",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	d := model.DefaultSettings()
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&playBPM, "bpm", d.BPM, fmt.Sprintf("beats per minute (%d-%d)", model.MinBPM, model.MaxBPM))
	flags.StringVar(&playSound, "sound", string(d.SoundType), "beat sound: beep, tick, clap, bell, voice or custom")
	flags.StringVar(&playCustomSound, "custom-sound", "", "file path, http(s) URL or data: URI for the custom sound")
	flags.BoolVar(&playCount, "count", d.EnableCount, "speak the count on each beat")
	flags.IntVar(&playCountMax, "count-max", d.CountMax, "count range (8, 10 or 20)")
	flags.StringVar(&playLang, "lang", string(d.VoiceLanguage), "voice language: zh or en")
	flags.StringVar(&playGender, "gender", string(d.VoiceGender), "voice gender: male or female")
	flags.Float64Var(&playBeatVolume, "beat-volume", d.BeatVolume, "beat volume (0-1)")
	flags.Float64Var(&playVoiceVolume, "voice-volume", d.VoiceVolume, "voice volume (0-1)")
	flags.BoolVar(&playMusic, "music", d.BackgroundMusicEnabled, "play background music")
	flags.Float64Var(&playMusicVolume, "music-volume", d.BackgroundMusicVolume, "background music volume (0-1)")
	flags.StringVar(&playMusicDir, "music-dir", config.DefaultMusicDir(), "directory of .mp3/.wav background tracks")
	flags.BoolVar(&playTimer, "timer", d.TimerMode, "stop after --timer-minutes")
	flags.IntVar(&playTimerMinutes, "timer-minutes", d.TimerDuration, fmt.Sprintf("timer length in minutes (%d-%d)", model.MinTimerDuration, model.MaxTimerDuration))
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.Flags().StringVar(&playPreset, "preset", "", "load a saved preset before applying flags")
	rootCmd.Flags().BoolVar(&playHeadless, "headless", false, "print status lines instead of the TUI")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVoicesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newPresetCmd())
	rootCmd.AddCommand(newToneCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	var preset *model.Preset
	if playPreset != "" {
		p, err := st.GetPreset(cmd.Context(), playPreset)
		if err != nil {
			if errors.Is(err, store.ErrPresetNotFound) {
				return fmt.Errorf("preset %q not found (see: tuibeat preset list)", playPreset)
			}
			return fmt.Errorf("failed to load preset: %w", err)
		}
		preset = &p
	}

	s, err := resolveSettings(cmd, fileCfg, preset)
	if err != nil {
		return err
	}

	headless := playHeadless || !term.IsTerminal(int(os.Stdout.Fd()))
	logger, closeLog, err := newLogger(cmd, fileCfg, !headless)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := buildWorkout(ctx, s, st, logger)
	defer func() {
		if cerr := w.Close(); cerr != nil {
			logger.Error("failed to release audio", "err", cerr)
		}
	}()
	if preset != nil {
		w.SetPreset(preset.Name)
	}

	// A preset pins every value so file edits cannot drift from it.
	pinned := func(name string) bool {
		return preset != nil || cmd.Flags().Changed(name)
	}
	go func() {
		err := config.Watch(ctx, config.DefaultConfigPath(), config.DefaultDebounce, logger, func(cfg config.FileConfig) {
			if err := w.ApplyFileConfig(cfg, pinned); err != nil {
				return
			}
			if !cmd.Flags().Changed("log-level") {
				if lvl, err := cfg.LogLevel(log.InfoLevel); err == nil {
					logger.SetLevel(lvl)
				}
			}
		})
		if err != nil {
			logger.Warn("config reload disabled", "err", err)
		}
	}()

	if headless {
		return runHeadless(ctx, w, cmd.OutOrStdout())
	}
	program := tea.NewProgram(tui.NewModel(w), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	w.Stop()
	return nil
}

// resolveSettings layers defaults, the config file, an optional preset and
// finally the flags the user set.
func resolveSettings(cmd *cobra.Command, fileCfg config.FileConfig, preset *model.Preset) (model.Settings, error) {
	s := model.DefaultSettings()
	s.MusicDir = config.DefaultMusicDir()
	if err := fileCfg.Apply(&s, nil); err != nil {
		return model.Settings{}, err
	}
	if preset != nil {
		musicDir := s.MusicDir
		s = preset.Settings
		if s.MusicDir == "" {
			s.MusicDir = musicDir
		}
	}
	if err := applyPlayFlags(cmd, &s); err != nil {
		return model.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return model.Settings{}, err
	}
	if s.SoundType == model.SoundCustom && s.CustomSoundData == "" {
		return model.Settings{}, fmt.Errorf("--sound custom needs --custom-sound")
	}
	if s.CustomSoundData != "" {
		if err := tone.ValidateCustomSound(s.CustomSoundData); err != nil {
			return model.Settings{}, err
		}
	}
	return s, nil
}

func applyPlayFlags(cmd *cobra.Command, s *model.Settings) error {
	applyIntFlag(cmd, "bpm", &s.BPM, playBPM)
	applyStringFlag(cmd, "custom-sound", &s.CustomSoundData, playCustomSound)
	applyBoolFlag(cmd, "count", &s.EnableCount, playCount)
	applyIntFlag(cmd, "count-max", &s.CountMax, playCountMax)
	applyFloatFlag(cmd, "beat-volume", &s.BeatVolume, playBeatVolume)
	applyFloatFlag(cmd, "voice-volume", &s.VoiceVolume, playVoiceVolume)
	applyBoolFlag(cmd, "music", &s.BackgroundMusicEnabled, playMusic)
	applyFloatFlag(cmd, "music-volume", &s.BackgroundMusicVolume, playMusicVolume)
	applyStringFlag(cmd, "music-dir", &s.MusicDir, playMusicDir)
	applyBoolFlag(cmd, "timer", &s.TimerMode, playTimer)
	applyIntFlag(cmd, "timer-minutes", &s.TimerDuration, playTimerMinutes)
	if cmd.Flags().Changed("sound") {
		st, err := model.ParseSoundType(strings.ToLower(playSound))
		if err != nil {
			return fmt.Errorf("invalid --sound: %w", err)
		}
		s.SoundType = st
	}
	if cmd.Flags().Changed("lang") {
		lang, err := model.ParseVoiceLanguage(strings.ToLower(playLang))
		if err != nil {
			return fmt.Errorf("invalid --lang: %w", err)
		}
		s.VoiceLanguage = lang
	}
	if cmd.Flags().Changed("gender") {
		g, err := model.ParseVoiceGender(strings.ToLower(playGender))
		if err != nil {
			return fmt.Errorf("invalid --gender: %w", err)
		}
		s.VoiceGender = g
	}
	return nil
}

// buildWorkout wires the audio, speech, music and history components.
func buildWorkout(ctx context.Context, s model.Settings, st *store.Store, logger *log.Logger) *workout.Workout {
	synth := tone.New(tone.Options{Logger: logger})

	var backend speech.Backend
	if b, err := speech.DetectBackend(); err == nil {
		logger.Info("speech backend found", "backend", b.Name())
		backend = b
	} else {
		logger.Warn("spoken counting unavailable", "err", err)
	}
	engine := speech.NewEngine(backend, logger)
	if engine.Supported() {
		go func() {
			// Warm the voice cache so the first count is not delayed.
			if _, err := engine.Voices(ctx); err != nil {
				logger.Debug("failed to list voices", "err", err)
			}
		}()
	}

	paths, err := music.LoadPlaylist(s.MusicDir)
	if err != nil {
		logger.Warn("failed to read music directory", "dir", s.MusicDir, "err", err)
	}
	logger.Debug("playlist loaded", "dir", s.MusicDir, "tracks", len(paths))
	playlist := music.NewPlayer(music.NewFileTracks(paths, synth.Output), s.BackgroundMusicVolume, logger)

	return workout.New(workout.Deps{
		Settings: settings.NewLive(s),
		Tones:    synth,
		Speech:   engine,
		Music:    playlist,
		Logs:     st,
	}, player.Options{Logger: logger})
}

func runHeadless(ctx context.Context, w *workout.Workout, out io.Writer) error {
	w.Start()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return nil
		case <-w.Finished():
			_, err := fmt.Fprintln(out, "workout complete")
			return err
		case <-ticker.C:
			if _, err := fmt.Fprintln(out, statusLine(w.Snapshot())); err != nil {
				return err
			}
		}
	}
}

func statusLine(st model.PlayerState) string {
	parts := []string{
		fmt.Sprintf("[%s]", st.Status),
		fmt.Sprintf("%d bpm", st.CurrentBPM),
	}
	if st.CurrentCount > 0 {
		parts = append(parts, fmt.Sprintf("count %d", st.CurrentCount))
	}
	parts = append(parts, "elapsed "+stats.FormatDuration(st.ElapsedSeconds))
	if st.TimerMode {
		parts = append(parts, "remaining "+stats.FormatDuration(st.RemainingSeconds))
	}
	return strings.Join(parts, " ")
}

// newLogger logs to a file while the TUI owns the terminal and to stderr
// otherwise.
func newLogger(cmd *cobra.Command, fileCfg config.FileConfig, toFile bool) (*log.Logger, func(), error) {
	level, err := fileCfg.LogLevel(log.InfoLevel)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("log-level") {
		level, err = log.ParseLevel(logLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		path := config.DefaultLogPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close.
				_ = cerr
			}
		}
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closeFn, nil
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyFloatFlag(cmd *cobra.Command, name string, target *float64, value float64) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
