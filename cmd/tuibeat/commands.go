package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuibeat/internal/config"
	"github.com/verte-zerg/tuibeat/internal/historyui"
	"github.com/verte-zerg/tuibeat/internal/model"
	"github.com/verte-zerg/tuibeat/internal/speech"
	"github.com/verte-zerg/tuibeat/internal/stats"
	"github.com/verte-zerg/tuibeat/internal/store"
	"github.com/verte-zerg/tuibeat/internal/tone"
)

var (
	historySince  string
	historyLast   int
	historyJSON   bool
	historyClear  bool
	historyWindow int
)

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Edit the config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.DefaultTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newVoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices available for spoken counting",
		Args:  cobra.NoArgs,
		RunE:  runVoicesCmd,
	}
}

func runVoicesCmd(cmd *cobra.Command, _ []string) error {
	backend, err := speech.DetectBackend()
	if err != nil {
		return err
	}
	engine := speech.NewEngine(backend, log.New(io.Discard))
	voices, err := engine.Voices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	var lang model.VoiceLanguage
	if cmd.Flags().Changed("lang") {
		if lang, err = model.ParseVoiceLanguage(strings.ToLower(playLang)); err != nil {
			return fmt.Errorf("invalid --lang: %w", err)
		}
	}
	gender, err := model.ParseVoiceGender(strings.ToLower(playGender))
	if err != nil {
		return fmt.Errorf("invalid --gender: %w", err)
	}

	rows := make([][]string, 0, len(voices))
	for _, v := range voices {
		if lang != "" {
			if _, ok := speech.SelectVoice([]speech.Voice{v}, lang, ""); !ok {
				continue
			}
		}
		langs := append([]string{v.Lang}, v.Aliases...)
		rows = append(rows, []string{v.ID, v.Name, strings.Join(langs, ","), v.Gender})
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Backend: %s\n", backend.Name()); err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(out, "No voices found.")
		return err
	}
	for _, line := range stats.FormatTable([]string{"ID", "Name", "Lang", "Gender"}, rows, nil) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}

	for _, l := range []model.VoiceLanguage{model.LangZH, model.LangEN} {
		if lang != "" && l != lang {
			continue
		}
		pick := "(none, backend default)"
		if v, ok := speech.SelectVoice(voices, l, gender); ok {
			pick = v.Name
		}
		if _, err := fmt.Fprintf(out, "Counting in %s (%s) uses: %s\n", l, gender, pick); err != nil {
			return err
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show workout history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().BoolVar(&historyJSON, "json", false, "print sessions as JSON")
	cmd.Flags().BoolVar(&historyClear, "clear", false, "delete all recorded sessions")
	cmd.Flags().IntVar(&historyWindow, "window", historyui.DefaultWindow, "moving average window")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter, err := historyFilter(historySince, historyLast)
	if err != nil {
		return err
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be at least 1")
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if historyClear {
		n, err := st.ClearExerciseLogs(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		_, err = fmt.Fprintf(out, "Deleted %d sessions.\n", n)
		return err
	}

	if historyJSON {
		logs, err := st.ListExerciseLogs(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		return writeHistoryJSON(out, logs)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		program := tea.NewProgram(historyui.NewModel(st, filter, historyWindow), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	logs, err := st.ListExerciseLogs(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if err := stats.RenderSummary(out, logs); err != nil {
		return err
	}
	if err := stats.RenderTrend(out, logs, historyWindow); err != nil {
		return err
	}
	return stats.RenderHistoryTable(out, logs)
}

func historyFilter(since string, last int) (model.HistoryFilter, error) {
	if last < 0 {
		return model.HistoryFilter{}, fmt.Errorf("--last must not be negative")
	}
	filter := model.HistoryFilter{Last: last}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	return filter, nil
}

type historyEntry struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int       `json:"duration_seconds"`
	BPM             int       `json:"bpm"`
	Sound           string    `json:"sound"`
	Count           bool      `json:"count"`
	CountMax        int       `json:"count_max"`
	Preset          string    `json:"preset,omitempty"`
}

func writeHistoryJSON(w io.Writer, logs []model.ExerciseLog) error {
	entries := make([]historyEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, historyEntry{
			ID:              l.ID,
			StartedAt:       l.StartedAt,
			EndedAt:         l.EndedAt,
			DurationSeconds: l.DurationSeconds,
			BPM:             l.BPM,
			Sound:           string(l.SoundType),
			Count:           l.EnableCount,
			CountMax:        l.CountMax,
			Preset:          l.Preset,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved workout presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE:  runPresetListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save NAME",
		Short: "Save the current settings, with any flags applied, as a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetSaveCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetDeleteCmd,
	})
	return cmd
}

func runPresetListCmd(cmd *cobra.Command, _ []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	presets, err := st.ListPresets(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list presets: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(presets) == 0 {
		_, err := fmt.Fprintln(out, "No presets saved. Save one with: tuibeat preset save NAME")
		return err
	}
	rows := make([][]string, 0, len(presets))
	for _, p := range presets {
		rows = append(rows, presetRow(p))
	}
	headers := []string{"Name", "BPM", "Sound", "Count", "Timer", "Created"}
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func presetRow(p model.Preset) []string {
	s := p.Settings
	count := "off"
	if s.EnableCount {
		count = fmt.Sprintf("1-%d %s", s.CountMax, s.VoiceLanguage)
	}
	timer := "off"
	if s.TimerMode {
		timer = fmt.Sprintf("%dm", s.TimerDuration)
	}
	return []string{
		p.Name,
		fmt.Sprintf("%d", s.BPM),
		string(s.SoundType),
		count,
		timer,
		p.CreatedAt.Local().Format("2006-01-02 15:04"),
	}
}

func runPresetSaveCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	s, err := resolveSettings(cmd, fileCfg, nil)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := st.SavePreset(cmd.Context(), args[0], s)
	if err != nil {
		if errors.Is(err, store.ErrPresetLimit) {
			return fmt.Errorf("at most %d presets can be saved; delete one first", model.MaxPresets)
		}
		return fmt.Errorf("failed to save preset: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q (%d bpm, %s).\n", p.Name, p.Settings.BPM, p.Settings.SoundType)
	return err
}

func runPresetDeleteCmd(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.DeletePreset(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, store.ErrPresetNotFound) {
			return fmt.Errorf("preset %q not found", args[0])
		}
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %q.\n", args[0])
	return err
}

func newToneCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "tone KIND",
		Short:     "Play one beat sound and exit",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"beep", "tick", "clap", "bell", "voice", "custom"},
		RunE:      runToneCmd,
	}
}

func runToneCmd(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseSoundType(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if kind == model.SoundVoice {
		backend, err := speech.DetectBackend()
		if err != nil {
			return err
		}
		lang, gender, err := voiceFlags()
		if err != nil {
			return err
		}
		engine := speech.NewEngine(backend, log.New(io.Discard))
		return engine.SpeakBeat(ctx, lang, gender, playBeatVolume, playBPM)
	}

	synth := tone.New(tone.Options{Logger: log.New(io.Discard)})
	defer func() {
		if cerr := synth.Close(); cerr != nil {
			logErrln(cerr)
		}
	}()

	if kind == model.SoundCustom {
		if playCustomSound == "" {
			return fmt.Errorf("tone custom needs --custom-sound")
		}
		return synth.PlayCustomSound(ctx, playCustomSound, playBeatVolume)
	}

	start := time.Now()
	if err := synth.PlayTone(ctx, kind, playBeatVolume); err != nil {
		return err
	}
	// PlayTone returns before the tail of long sounds has drained.
	rest := time.Duration(tone.Duration(kind)*float64(time.Second)) - time.Since(start)
	if rest > 0 {
		time.Sleep(rest)
	}
	return nil
}

func voiceFlags() (model.VoiceLanguage, model.VoiceGender, error) {
	lang, err := model.ParseVoiceLanguage(strings.ToLower(playLang))
	if err != nil {
		return "", "", fmt.Errorf("invalid --lang: %w", err)
	}
	gender, err := model.ParseVoiceGender(strings.ToLower(playGender))
	if err != nil {
		return "", "", fmt.Errorf("invalid --gender: %w", err)
	}
	return lang, gender, nil
}
